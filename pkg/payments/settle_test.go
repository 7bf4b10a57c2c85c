package payments

import (
	"context"
	"errors"
	"testing"
)

// seedHeldCollection writes a SUCCESS collection transaction with its transfer
// still on hold, as left behind by a confirmed payment.
func seedHeldCollection(test *testing.T, fixture *serviceFixture, tournamentID TournamentID, suffix string, organizerShare Paise) Transaction {
	test.Helper()
	playerID := fixture.seedPlayer(test, tournamentID, "player-"+suffix)
	transaction := Transaction{
		ID:               mustTransactionID(test, "txn-held-"+suffix),
		Type:             TransactionCollection,
		Status:           TransactionSuccess,
		TournamentID:     tournamentID,
		PlayerID:         playerID,
		OrderID:          "order_" + suffix,
		PaymentID:        "pay_" + suffix,
		Amount:           organizerShare * 100 / 95,
		OrganizerShare:   organizerShare,
		TransferID:       "trf_" + suffix,
		TransferStatus:   TransferOnHold,
		SettlementHeld:   true,
		HoldUntilUnixUTC: testNowUnixUTC + 1000,
	}
	fixture.store.transactions[transaction.ID.String()] = transaction
	fixture.gateway.transfers[transaction.TransferID] = Transfer{
		ID:     transaction.TransferID,
		Amount: organizerShare,
		OnHold: true,
	}
	return transaction
}

func TestReleaseSettlementRequiresOperatorRole(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID := fixture.seedTournament(test, "trn-1", "org-1", 500)

	_, err := fixture.service.ReleaseSettlement(context.Background(), Actor{UserID: "org-1", Roles: []string{RoleOrganizer}}, tournamentID)
	if !errors.Is(err, ErrPermissionDenied) {
		test.Fatalf("expected permission denied, got %v", err)
	}
}

func TestReleaseSettlementRejectsSecondRelease(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID := fixture.seedTournament(test, "trn-1", "org-1", 500)
	tournament := fixture.store.tournaments[tournamentID.String()]
	tournament.SettlementStatus = SettlementReleased
	fixture.store.tournaments[tournamentID.String()] = tournament

	_, err := fixture.service.ReleaseSettlement(context.Background(), operatorActor(), tournamentID)
	if !errors.Is(err, ErrSettlementReleased) {
		test.Fatalf("expected settlement released, got %v", err)
	}
}

func TestReleaseSettlementRejectsWhenNothingHeld(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID := fixture.seedTournament(test, "trn-1", "org-1", 500)

	_, err := fixture.service.ReleaseSettlement(context.Background(), operatorActor(), tournamentID)
	if !errors.Is(err, ErrNoHeldTransfers) {
		test.Fatalf("expected no held transfers, got %v", err)
	}
}

func TestReleaseSettlementReleasesAllTransfers(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID := fixture.seedTournament(test, "trn-1", "org-1", 500)
	tournament := fixture.store.tournaments[tournamentID.String()]
	tournament.SettlementStatus = SettlementHeld
	tournament.TotalHeldAmount = 95000
	fixture.store.tournaments[tournamentID.String()] = tournament
	first := seedHeldCollection(test, fixture, tournamentID, "1", 47500)
	second := seedHeldCollection(test, fixture, tournamentID, "2", 47500)

	result, err := fixture.service.ReleaseSettlement(context.Background(), operatorActor(), tournamentID)
	if err != nil {
		test.Fatalf("release: %v", err)
	}
	if result.ReleasedCount != 2 || result.FailedCount != 0 {
		test.Fatalf("unexpected counts: %+v", result)
	}
	if result.ReleasedAmount != 95000 {
		test.Fatalf("released %d, expected 95000", result.ReleasedAmount)
	}
	if result.Status != SettlementReleased {
		test.Fatalf("status %s, expected released", result.Status)
	}
	for _, seeded := range []Transaction{first, second} {
		transaction := fixture.store.transactions[seeded.ID.String()]
		if transaction.SettlementHeld {
			test.Fatalf("transaction %s still held", seeded.ID.String())
		}
		if transaction.TransferStatus != TransferProcessing {
			test.Fatalf("transaction %s transfer status %s", seeded.ID.String(), transaction.TransferStatus)
		}
	}
	updated := fixture.store.mustTournament(test, tournamentID)
	if updated.SettlementStatus != SettlementReleased {
		test.Fatalf("tournament status %s", updated.SettlementStatus)
	}
	if updated.TotalHeldAmount != 0 || updated.TotalReleasedAmount != 95000 {
		test.Fatalf("held %d released %d", updated.TotalHeldAmount, updated.TotalReleasedAmount)
	}
	if len(fixture.gateway.released) != 2 {
		test.Fatalf("gateway released %d transfers", len(fixture.gateway.released))
	}
}

func TestReleaseSettlementPartialFailureIsReported(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID := fixture.seedTournament(test, "trn-1", "org-1", 500)
	tournament := fixture.store.tournaments[tournamentID.String()]
	tournament.SettlementStatus = SettlementHeld
	tournament.TotalHeldAmount = 142500
	fixture.store.tournaments[tournamentID.String()] = tournament
	seedHeldCollection(test, fixture, tournamentID, "1", 47500)
	failing := seedHeldCollection(test, fixture, tournamentID, "2", 47500)
	seedHeldCollection(test, fixture, tournamentID, "3", 47500)
	fixture.gateway.releaseErr[failing.TransferID] = errors.New("transfer stuck")

	result, err := fixture.service.ReleaseSettlement(context.Background(), operatorActor(), tournamentID)
	if err != nil {
		test.Fatalf("release: %v", err)
	}
	if result.ReleasedCount != 2 || result.FailedCount != 1 {
		test.Fatalf("unexpected counts: %+v", result)
	}
	if result.Status != SettlementPartialRelease {
		test.Fatalf("status %s, expected partial_release", result.Status)
	}
	if result.ReleasedAmount != 95000 {
		test.Fatalf("released %d, expected 95000", result.ReleasedAmount)
	}
	if len(result.Failures) != 1 || result.Failures[0].TransactionID != failing.ID.String() {
		test.Fatalf("unexpected failures: %+v", result.Failures)
	}

	stuck := fixture.store.transactions[failing.ID.String()]
	if !stuck.SettlementHeld {
		test.Fatalf("failed transfer lost its hold")
	}
	updated := fixture.store.mustTournament(test, tournamentID)
	if updated.SettlementStatus != SettlementPartialRelease {
		test.Fatalf("tournament status %s", updated.SettlementStatus)
	}
	if updated.TotalHeldAmount != 47500 || updated.TotalReleasedAmount != 95000 {
		test.Fatalf("held %d released %d", updated.TotalHeldAmount, updated.TotalReleasedAmount)
	}

	// Retrying after the gateway recovers salvages the stuck transfer.
	delete(fixture.gateway.releaseErr, failing.TransferID)
	retry, err := fixture.service.ReleaseSettlement(context.Background(), operatorActor(), tournamentID)
	if err != nil {
		test.Fatalf("retry: %v", err)
	}
	if retry.ReleasedCount != 1 || retry.Status != SettlementReleased {
		test.Fatalf("unexpected retry result: %+v", retry)
	}
	updated = fixture.store.mustTournament(test, tournamentID)
	if updated.TotalHeldAmount != 0 || updated.TotalReleasedAmount != 142500 {
		test.Fatalf("held %d released %d after retry", updated.TotalHeldAmount, updated.TotalReleasedAmount)
	}
}

func TestReleaseSettlementResolvesTransferFromGateway(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID := fixture.seedTournament(test, "trn-1", "org-1", 500)
	tournament := fixture.store.tournaments[tournamentID.String()]
	tournament.SettlementStatus = SettlementHeld
	fixture.store.tournaments[tournamentID.String()] = tournament
	seeded := seedHeldCollection(test, fixture, tournamentID, "1", 47500)
	seeded.TransferID = "" // recorded before the gateway reported transfer ids
	fixture.store.transactions[seeded.ID.String()] = seeded
	fixture.gateway.transfersByOrder[seeded.OrderID] = []Transfer{{ID: "trf_resolved", OnHold: true}}
	fixture.gateway.transfers["trf_resolved"] = Transfer{ID: "trf_resolved", OnHold: true}

	result, err := fixture.service.ReleaseSettlement(context.Background(), operatorActor(), tournamentID)
	if err != nil {
		test.Fatalf("release: %v", err)
	}
	if result.ReleasedCount != 1 {
		test.Fatalf("unexpected result: %+v", result)
	}
	transaction := fixture.store.transactions[seeded.ID.String()]
	if transaction.TransferID != "trf_resolved" {
		test.Fatalf("resolved transfer id %q", transaction.TransferID)
	}
}
