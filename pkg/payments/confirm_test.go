package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func paymentEventBody(test *testing.T, event string, payment WebhookPayment) []byte {
	test.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"payload": map[string]any{
			"payment": map[string]any{"entity": payment},
		},
	})
	if err != nil {
		test.Fatalf("marshal webhook body: %v", err)
	}
	return body
}

func transferEventBody(test *testing.T, event string, transfer WebhookTransfer) []byte {
	test.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"payload": map[string]any{
			"transfer": map[string]any{"entity": transfer},
		},
	})
	if err != nil {
		test.Fatalf("marshal webhook body: %v", err)
	}
	return body
}

// startRegistration seeds an organizer, tournament, and player, then runs the
// order creation so a STARTED transaction exists, as in a real checkout.
func startRegistration(test *testing.T, fixture *serviceFixture, partner bool) (TournamentID, PlayerID, CreateOrderResult) {
	test.Helper()
	fixture.seedOrganizer(test, "org-1", "acc_organizer1")
	tournamentID := fixture.seedTournament(test, "trn-1", "org-1", 500)
	playerID := fixture.seedPlayer(test, tournamentID, "player-1")
	result, err := fixture.service.CreateOrder(context.Background(), CreateOrderRequest{
		TournamentID:   tournamentID,
		PlayerID:       playerID,
		PaidForPartner: partner,
	})
	if err != nil {
		test.Fatalf("create order: %v", err)
	}
	return tournamentID, playerID, result
}

func capturedPaymentFor(order CreateOrderResult) WebhookPayment {
	return WebhookPayment{
		ID:       "pay_1",
		OrderID:  order.OrderID,
		Amount:   order.Amount.Int64(),
		Currency: "INR",
		Status:   "captured",
		Method:   "upi",
		Notes: map[string]any{
			"tournament_id": "trn-1",
			"player_id":     "player-1",
			"seats":         "1",
		},
	}
}

func (fixture *serviceFixture) lastAudit(test *testing.T) VerificationLog {
	test.Helper()
	if len(fixture.store.verifications) == 0 {
		test.Fatalf("no verification log entries")
	}
	return fixture.store.verifications[len(fixture.store.verifications)-1]
}

func TestConfirmFromWebhookMarksPlayerPaidOnce(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	body := paymentEventBody(test, EventPaymentCaptured, capturedPaymentFor(order))

	result, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig")
	if err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if result.AlreadyConfirmed {
		test.Fatalf("first confirmation reported as duplicate")
	}

	player := fixture.store.mustPlayer(test, tournamentID, playerID)
	if !player.Paid() {
		test.Fatalf("player not marked paid")
	}
	if player.PaymentID != "pay_1" || player.PaidAmount != 50000 {
		test.Fatalf("unexpected paid record: %+v", player)
	}
	tournament := fixture.store.mustTournament(test, tournamentID)
	if tournament.TotalCollections != 50000 {
		test.Fatalf("total collections %d, expected 50000", tournament.TotalCollections)
	}
	if tournament.PaidPlayerCount != 1 {
		test.Fatalf("paid player count %d, expected 1", tournament.PaidPlayerCount)
	}
	if tournament.TotalHeldAmount != 47500 {
		test.Fatalf("held amount %d, expected 47500", tournament.TotalHeldAmount)
	}
	if tournament.SettlementStatus != SettlementHeld {
		test.Fatalf("settlement status %s, expected held", tournament.SettlementStatus)
	}
	transaction, err := fixture.store.FindTransactionByPayment(context.Background(), mustPaymentID(test, "pay_1"))
	if err != nil {
		test.Fatalf("find transaction: %v", err)
	}
	if transaction.Status != TransactionSuccess || !transaction.SettlementHeld {
		test.Fatalf("unexpected transaction: %+v", transaction)
	}
	if transaction.ID.String() != order.TransactionID {
		test.Fatalf("confirmation minted a new transaction instead of promoting the started one")
	}
	if audit := fixture.lastAudit(test); audit.Outcome != VerificationVerified {
		test.Fatalf("expected VERIFIED audit, got %s", audit.Outcome)
	}

	// Redelivery of the same event must not double-count.
	redelivered, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig")
	if err != nil {
		test.Fatalf("redelivered confirm: %v", err)
	}
	if !redelivered.AlreadyConfirmed {
		test.Fatalf("redelivery not reported as duplicate")
	}
	tournament = fixture.store.mustTournament(test, tournamentID)
	if tournament.TotalCollections != 50000 || tournament.PaidPlayerCount != 1 {
		test.Fatalf("redelivery changed aggregates: %+v", tournament)
	}
	if audit := fixture.lastAudit(test); audit.Outcome != VerificationReplay {
		test.Fatalf("expected REPLAY audit, got %s", audit.Outcome)
	}
}

func TestConfirmFromWebhookRejectsBadSignature(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	fixture.verifier.webhookOK = false
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	body := paymentEventBody(test, EventPaymentCaptured, capturedPaymentFor(order))

	_, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "forged")
	if !errors.Is(err, ErrSignatureMismatch) {
		test.Fatalf("expected signature mismatch, got %v", err)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); player.Paid() {
		test.Fatalf("forged webhook marked player paid")
	}
	if len(fixture.store.verifications) != 0 {
		test.Fatalf("forged webhook wrote %d audit rows", len(fixture.store.verifications))
	}
}

func TestConfirmFromWebhookCapturesAuthorizedPayment(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	payment := capturedPaymentFor(order)
	payment.Status = "authorized"
	body := paymentEventBody(test, EventPaymentAuthorized, payment)

	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig"); err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if len(fixture.gateway.captured) != 1 || fixture.gateway.captured[0] != "pay_1" {
		test.Fatalf("authorized payment was not captured: %v", fixture.gateway.captured)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); !player.Paid() {
		test.Fatalf("player not marked paid after capture")
	}
}

func TestConfirmFromWebhookCaptureFailureAborts(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	fixture.gateway.captureErr = errors.New("capture rejected")
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	body := paymentEventBody(test, EventPaymentAuthorized, capturedPaymentFor(order))

	_, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig")
	if !errors.Is(err, ErrGateway) {
		test.Fatalf("expected gateway error, got %v", err)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); player.Paid() {
		test.Fatalf("player marked paid despite failed capture")
	}
}

func TestConfirmFromWebhookToleratesConcurrentCapture(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	fixture.gateway.captureErr = ErrPaymentAlreadyCaptured
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	body := paymentEventBody(test, EventPaymentAuthorized, capturedPaymentFor(order))

	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig"); err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); !player.Paid() {
		test.Fatalf("player not marked paid after concurrent capture")
	}
}

func TestConfirmFromWebhookDuoSeatsBothCounted(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, _, order := startRegistration(test, fixture, true)
	payment := capturedPaymentFor(order)
	payment.Notes["seats"] = "2"
	body := paymentEventBody(test, EventPaymentCaptured, payment)

	result, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig")
	if err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if result.Seats != 2 {
		test.Fatalf("expected 2 seats, got %d", result.Seats)
	}
	tournament := fixture.store.mustTournament(test, tournamentID)
	if tournament.PaidPlayerCount != 2 {
		test.Fatalf("paid player count %d, expected 2", tournament.PaidPlayerCount)
	}
	if tournament.TotalCollections != 100000 {
		test.Fatalf("total collections %d, expected 100000", tournament.TotalCollections)
	}
}

func TestConfirmFromWebhookResolvesRegistrationFromStartedTransaction(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	payment := capturedPaymentFor(order)
	payment.Notes = nil // gateway delivered no notes; fall back to the order
	body := paymentEventBody(test, EventPaymentCaptured, payment)

	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig"); err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); !player.Paid() {
		test.Fatalf("player not resolved from started transaction")
	}
}

func TestConfirmFromWebhookPaymentFailedRecordsFailure(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	payment := capturedPaymentFor(order)
	payment.Status = "failed"
	payment.ErrorDescription = "card declined"
	body := paymentEventBody(test, EventPaymentFailed, payment)

	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig"); err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); player.Paid() {
		test.Fatalf("failed payment marked player paid")
	}
	transaction, err := fixture.store.FindTransactionByOrder(context.Background(), mustOrderIDValue(test, order.OrderID))
	if err != nil {
		test.Fatalf("find transaction: %v", err)
	}
	if transaction.Status != TransactionFailed {
		test.Fatalf("transaction status %s, expected FAILED", transaction.Status)
	}
	if transaction.FailureReason != "card declined" {
		test.Fatalf("failure reason %q", transaction.FailureReason)
	}
	if audit := fixture.lastAudit(test); audit.Outcome != VerificationFailed {
		test.Fatalf("expected FAILED audit, got %s", audit.Outcome)
	}
}

func TestConfirmFromWebhookFailureDoesNotRegressSuccess(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	_, _, order := startRegistration(test, fixture, false)
	captured := paymentEventBody(test, EventPaymentCaptured, capturedPaymentFor(order))
	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), captured, "sig"); err != nil {
		test.Fatalf("confirm: %v", err)
	}

	failedPayment := capturedPaymentFor(order)
	failedPayment.Status = "failed"
	failedPayment.ErrorDescription = "late failure replay"
	failed := paymentEventBody(test, EventPaymentFailed, failedPayment)
	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), failed, "sig"); err != nil {
		test.Fatalf("failed event: %v", err)
	}

	transaction, err := fixture.store.FindTransactionByPayment(context.Background(), mustPaymentID(test, "pay_1"))
	if err != nil {
		test.Fatalf("find transaction: %v", err)
	}
	if transaction.Status != TransactionSuccess {
		test.Fatalf("late failure regressed transaction to %s", transaction.Status)
	}
}

func TestConfirmFromWebhookTransferEvents(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	_, _, order := startRegistration(test, fixture, false)
	captured := paymentEventBody(test, EventPaymentCaptured, capturedPaymentFor(order))
	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), captured, "sig"); err != nil {
		test.Fatalf("confirm: %v", err)
	}

	processed := transferEventBody(test, EventTransferProcessed, WebhookTransfer{
		ID:     "trf_1",
		Source: "pay_1",
	})
	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), processed, "sig"); err != nil {
		test.Fatalf("transfer.processed: %v", err)
	}
	transaction, err := fixture.store.FindTransactionByPayment(context.Background(), mustPaymentID(test, "pay_1"))
	if err != nil {
		test.Fatalf("find transaction: %v", err)
	}
	if transaction.TransferStatus != TransferProcessed {
		test.Fatalf("transfer status %s, expected processed", transaction.TransferStatus)
	}

	failed := transferEventBody(test, EventTransferFailed, WebhookTransfer{
		ID:     "trf_1",
		Source: "pay_1",
	})
	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), failed, "sig"); err != nil {
		test.Fatalf("transfer.failed: %v", err)
	}
	transaction, err = fixture.store.FindTransactionByPayment(context.Background(), mustPaymentID(test, "pay_1"))
	if err != nil {
		test.Fatalf("find transaction: %v", err)
	}
	if transaction.TransferStatus != TransferFailed {
		test.Fatalf("transfer status %s, expected failed", transaction.TransferStatus)
	}
}

func TestConfirmFromWebhookTransferEventWithOrderSource(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	_, _, order := startRegistration(test, fixture, false)
	captured := paymentEventBody(test, EventPaymentCaptured, capturedPaymentFor(order))
	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), captured, "sig"); err != nil {
		test.Fatalf("confirm: %v", err)
	}

	// Transfers created inside an order report the order id as their source.
	processed := transferEventBody(test, EventTransferProcessed, WebhookTransfer{
		ID:     "trf_1",
		Source: order.OrderID,
	})
	result, err := fixture.service.ConfirmFromWebhook(context.Background(), processed, "sig")
	if err != nil {
		test.Fatalf("transfer.processed with order source: %v", err)
	}
	if result.PaymentID != "pay_1" {
		test.Fatalf("expected the owning payment resolved, got %q", result.PaymentID)
	}
	transaction, err := fixture.store.FindTransactionByPayment(context.Background(), mustPaymentID(test, "pay_1"))
	if err != nil {
		test.Fatalf("find transaction: %v", err)
	}
	if transaction.TransferStatus != TransferProcessed {
		test.Fatalf("transfer status %s, expected processed", transaction.TransferStatus)
	}

	unknown := transferEventBody(test, EventTransferProcessed, WebhookTransfer{
		ID:     "trf_x",
		Source: "order_unknown",
	})
	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), unknown, "sig"); !errors.Is(err, ErrTransactionNotFound) {
		test.Fatalf("expected ErrTransactionNotFound for unknown source, got %v", err)
	}
}

func TestConfirmFromWebhookUnknownEventIsAcknowledged(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	startRegistration(test, fixture, false)
	body := []byte(`{"event":"invoice.paid","payload":{}}`)

	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig"); err != nil {
		test.Fatalf("unknown event must be acknowledged, got %v", err)
	}
}

func TestConfirmFromClientVerifiesAgainstGateway(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	fixture.gateway.payments["pay_1"] = GatewayPayment{
		ID:       "pay_1",
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: "INR",
		Status:   PaymentCaptured,
		Method:   "card",
	}

	result, err := fixture.service.ConfirmFromClient(context.Background(), VerifyRequest{
		PaymentID:    mustPaymentID(test, "pay_1"),
		OrderID:      order.OrderID,
		Signature:    "checkout-sig",
		TournamentID: tournamentID.String(),
		PlayerID:     playerID.String(),
	})
	if err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if result.AlreadyConfirmed {
		test.Fatalf("first confirmation reported as duplicate")
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); !player.Paid() {
		test.Fatalf("player not marked paid")
	}
	if audit := fixture.lastAudit(test); audit.Outcome != VerificationVerified {
		test.Fatalf("expected VERIFIED audit, got %s", audit.Outcome)
	}

	// A second callback for the same payment is a replay.
	_, err = fixture.service.ConfirmFromClient(context.Background(), VerifyRequest{
		PaymentID:    mustPaymentID(test, "pay_1"),
		TournamentID: tournamentID.String(),
		PlayerID:     playerID.String(),
	})
	if !errors.Is(err, ErrDuplicateVerification) {
		test.Fatalf("expected duplicate verification, got %v", err)
	}
	tournament := fixture.store.mustTournament(test, tournamentID)
	if tournament.TotalCollections != 50000 || tournament.PaidPlayerCount != 1 {
		test.Fatalf("replay changed aggregates: %+v", tournament)
	}
}

func TestConfirmFromClientRejectsForgedCheckoutSignature(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	fixture.verifier.paymentOK = false
	tournamentID, playerID, order := startRegistration(test, fixture, false)

	_, err := fixture.service.ConfirmFromClient(context.Background(), VerifyRequest{
		PaymentID:    mustPaymentID(test, "pay_1"),
		OrderID:      order.OrderID,
		Signature:    "forged",
		TournamentID: tournamentID.String(),
		PlayerID:     playerID.String(),
	})
	if !errors.Is(err, ErrSignatureMismatch) {
		test.Fatalf("expected signature mismatch, got %v", err)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); player.Paid() {
		test.Fatalf("forged signature marked player paid")
	}
	if audit := fixture.lastAudit(test); audit.Outcome != VerificationSignatureMismatch {
		test.Fatalf("expected SIGNATURE_MISMATCH audit, got %s", audit.Outcome)
	}
}

func TestConfirmFromClientRejectsAmountMismatch(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	fixture.gateway.payments["pay_1"] = GatewayPayment{
		ID:      "pay_1",
		OrderID: order.OrderID,
		Amount:  40000, // gateway reports less than the expected 50000
		Status:  PaymentCaptured,
	}

	_, err := fixture.service.ConfirmFromClient(context.Background(), VerifyRequest{
		PaymentID:    mustPaymentID(test, "pay_1"),
		TournamentID: tournamentID.String(),
		PlayerID:     playerID.String(),
	})
	if !errors.Is(err, ErrAmountMismatch) {
		test.Fatalf("expected amount mismatch, got %v", err)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); player.Paid() {
		test.Fatalf("mismatched amount marked player paid")
	}
	if audit := fixture.lastAudit(test); audit.Outcome != VerificationAmountMismatch {
		test.Fatalf("expected AMOUNT_MISMATCH audit, got %s", audit.Outcome)
	}
}

func TestConfirmFromClientAllowsRoundingTolerance(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	fixture.gateway.payments["pay_1"] = GatewayPayment{
		ID:      "pay_1",
		OrderID: order.OrderID,
		Amount:  order.Amount + AmountTolerancePaise,
		Status:  PaymentCaptured,
	}

	if _, err := fixture.service.ConfirmFromClient(context.Background(), VerifyRequest{
		PaymentID:    mustPaymentID(test, "pay_1"),
		TournamentID: tournamentID.String(),
		PlayerID:     playerID.String(),
	}); err != nil {
		test.Fatalf("one-paisa difference must pass: %v", err)
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); !player.Paid() {
		test.Fatalf("player not marked paid")
	}
}

func TestConfirmFromClientRejectsUncapturablePayment(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	fixture.gateway.payments["pay_1"] = GatewayPayment{
		ID:      "pay_1",
		OrderID: order.OrderID,
		Amount:  order.Amount,
		Status:  PaymentFailed,
	}

	_, err := fixture.service.ConfirmFromClient(context.Background(), VerifyRequest{
		PaymentID:    mustPaymentID(test, "pay_1"),
		TournamentID: tournamentID.String(),
		PlayerID:     playerID.String(),
	})
	if !errors.Is(err, ErrPaymentNotCapturable) {
		test.Fatalf("expected not-capturable, got %v", err)
	}
	if audit := fixture.lastAudit(test); audit.Outcome != VerificationInvalidStatus {
		test.Fatalf("expected INVALID_STATUS audit, got %s", audit.Outcome)
	}
}

func TestConfirmFromClientCapturesAuthorizedPayment(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	fixture.gateway.payments["pay_1"] = GatewayPayment{
		ID:       "pay_1",
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: "INR",
		Status:   PaymentAuthorized,
	}

	if _, err := fixture.service.ConfirmFromClient(context.Background(), VerifyRequest{
		PaymentID:    mustPaymentID(test, "pay_1"),
		TournamentID: tournamentID.String(),
		PlayerID:     playerID.String(),
	}); err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if len(fixture.gateway.captured) != 1 {
		test.Fatalf("authorized payment was not captured")
	}
	if player := fixture.store.mustPlayer(test, tournamentID, playerID); !player.Paid() {
		test.Fatalf("player not marked paid")
	}
}

func TestWebhookAndClientCallbackConfirmOnce(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test)
	tournamentID, playerID, order := startRegistration(test, fixture, false)
	body := paymentEventBody(test, EventPaymentCaptured, capturedPaymentFor(order))
	if _, err := fixture.service.ConfirmFromWebhook(context.Background(), body, "sig"); err != nil {
		test.Fatalf("webhook confirm: %v", err)
	}

	fixture.gateway.payments["pay_1"] = GatewayPayment{
		ID:      "pay_1",
		OrderID: order.OrderID,
		Amount:  order.Amount,
		Status:  PaymentCaptured,
	}
	_, err := fixture.service.ConfirmFromClient(context.Background(), VerifyRequest{
		PaymentID:    mustPaymentID(test, "pay_1"),
		TournamentID: tournamentID.String(),
		PlayerID:     playerID.String(),
	})
	if !errors.Is(err, ErrDuplicateVerification) {
		test.Fatalf("expected duplicate verification after webhook, got %v", err)
	}
	tournament := fixture.store.mustTournament(test, tournamentID)
	if tournament.TotalCollections != 50000 || tournament.PaidPlayerCount != 1 || tournament.TotalHeldAmount != 47500 {
		test.Fatalf("racing paths double-counted: %+v", tournament)
	}
}

func TestParseWebhookEvent(test *testing.T) {
	test.Parallel()
	if _, err := ParseWebhookEvent([]byte("{not json")); !errors.Is(err, ErrInvalidWebhookEvent) {
		test.Fatalf("expected invalid webhook event for malformed body, got %v", err)
	}
	if _, err := ParseWebhookEvent([]byte(`{"payload":{}}`)); !errors.Is(err, ErrInvalidWebhookEvent) {
		test.Fatalf("expected invalid webhook event for missing name, got %v", err)
	}

	event, err := ParseWebhookEvent([]byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_9",
			"order_id": "order_9",
			"amount": 50000,
			"notes": {"tournament_id": "trn-9", "seats": 2}
		}}}
	}`))
	if err != nil {
		test.Fatalf("parse: %v", err)
	}
	if event.Kind != EventPaymentCaptured || event.Payment == nil {
		test.Fatalf("unexpected event: %+v", event)
	}
	if event.Payment.NoteString("tournament_id") != "trn-9" {
		test.Fatalf("string note not extracted")
	}
	if event.Payment.NoteInt("seats", 1) != 2 {
		test.Fatalf("numeric note not extracted")
	}
	if event.Payment.NoteInt("missing", 1) != 1 {
		test.Fatalf("missing note fallback not applied")
	}
}
