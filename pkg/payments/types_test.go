package payments

import (
	"errors"
	"testing"
)

func TestNewLinkedAccountIDEnforcesFormat(test *testing.T) {
	test.Parallel()
	if _, err := NewLinkedAccountID("acc_ABC123"); err != nil {
		test.Fatalf("valid account rejected: %v", err)
	}
	for _, raw := range []string{"", "acc_", "ABC123", "acct_ABC"} {
		if _, err := NewLinkedAccountID(raw); !errors.Is(err, ErrInvalidLinkedAccountID) {
			test.Fatalf("%q: expected invalid linked account, got %v", raw, err)
		}
	}
}

func TestIDConstructorsRejectBlank(test *testing.T) {
	test.Parallel()
	if _, err := NewTournamentID("  "); !errors.Is(err, ErrInvalidTournamentID) {
		test.Fatalf("expected invalid tournament id, got %v", err)
	}
	if _, err := NewPlayerID(""); !errors.Is(err, ErrInvalidPlayerID) {
		test.Fatalf("expected invalid player id, got %v", err)
	}
	if _, err := NewPaymentID("\t"); !errors.Is(err, ErrInvalidPaymentID) {
		test.Fatalf("expected invalid payment id, got %v", err)
	}
	if id, err := NewOrderID(" order_1 "); err != nil || id.String() != "order_1" {
		test.Fatalf("order id not trimmed: %q %v", id.String(), err)
	}
}

func TestRupeesToPaise(test *testing.T) {
	test.Parallel()
	amount, err := RupeesToPaise(500)
	if err != nil {
		test.Fatalf("convert: %v", err)
	}
	if amount != 50000 {
		test.Fatalf("expected 50000 paise, got %d", amount)
	}
	if amount.Rupees() != 500 {
		test.Fatalf("round trip lost value: %v", amount.Rupees())
	}
	if _, err := RupeesToPaise(-1); !errors.Is(err, ErrInvalidPaise) {
		test.Fatalf("expected invalid paise, got %v", err)
	}
}

func TestPlayerDerivedFlags(test *testing.T) {
	test.Parallel()
	player := Player{State: PaymentStateUnpaid}
	if player.Paid() || player.Refunded() {
		test.Fatalf("unpaid player reads paid/refunded")
	}
	player.State = PaymentStatePaid
	if !player.Paid() || player.Refunded() {
		test.Fatalf("paid player flags wrong")
	}
	player.State = PaymentStateRefunded
	if player.Paid() || !player.Refunded() {
		test.Fatalf("refunded player flags wrong")
	}
}

func TestOrganizerHasLinkedAccount(test *testing.T) {
	test.Parallel()
	organizer := Organizer{}
	if organizer.HasLinkedAccount() {
		test.Fatalf("empty organizer reports linked account")
	}
	organizer.LinkedAccountID = "acc_1x"
	if organizer.HasLinkedAccount() {
		test.Fatalf("non-active account must not count as linked")
	}
	organizer.LinkedAccountStatus = LinkedAccountActive
	if !organizer.HasLinkedAccount() {
		test.Fatalf("active account not reported as linked")
	}
}

func TestActorRoles(test *testing.T) {
	test.Parallel()
	if (Actor{UserID: "u1"}).IsOwnerOrAdmin() {
		test.Fatalf("roleless actor passes operator check")
	}
	if !(Actor{UserID: "u1", Roles: []string{RoleAdmin}}).IsOwnerOrAdmin() {
		test.Fatalf("admin actor fails operator check")
	}
	if !(Actor{UserID: "u1", Roles: []string{RoleOwner}}).IsOwnerOrAdmin() {
		test.Fatalf("owner actor fails operator check")
	}
	if (Actor{UserID: "u1", Roles: []string{RoleOrganizer}}).IsOwnerOrAdmin() {
		test.Fatalf("organizer actor passes operator check")
	}
}
