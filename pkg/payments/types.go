package payments

import (
	"fmt"
	"math"
	"strings"
)

// Paise is an integer currency amount in minor units (1 rupee = 100 paise).
type Paise int64

// TournamentID identifies a tournament.
type TournamentID struct {
	value string
}

// OrganizerID identifies a tournament organizer.
type OrganizerID struct {
	value string
}

// PlayerID identifies a player registration within a tournament.
type PlayerID struct {
	value string
}

// PaymentID identifies a gateway payment.
type PaymentID struct {
	value string
}

// OrderID identifies a gateway order.
type OrderID struct {
	value string
}

// TransferID identifies a gateway split transfer.
type TransferID struct {
	value string
}

// TransactionID is the idempotency key of a transaction record: either the
// gateway payment id or an internally generated id.
type TransactionID struct {
	value string
}

// LinkedAccountID is the gateway sub-account reference of an organizer.
type LinkedAccountID struct {
	value string
}

// SettlementStatus defines the tournament-level settlement lifecycle.
type SettlementStatus string

const (
	SettlementNone           SettlementStatus = "none"
	SettlementHeld           SettlementStatus = "held"
	SettlementReleased       SettlementStatus = "released"
	SettlementPartialRelease SettlementStatus = "partial_release"
	SettlementFailed         SettlementStatus = "failed"
	SettlementCompleted      SettlementStatus = "completed"
)

// LinkedAccountStatus defines the organizer sub-account lifecycle.
type LinkedAccountStatus string

const (
	LinkedAccountCreated   LinkedAccountStatus = "created"
	LinkedAccountPending   LinkedAccountStatus = "pending"
	LinkedAccountActive    LinkedAccountStatus = "active"
	LinkedAccountSuspended LinkedAccountStatus = "suspended"
)

// TransactionType enumerates transaction record kinds.
type TransactionType string

const (
	TransactionCollection TransactionType = "collection"
	TransactionPayout     TransactionType = "payout"
	TransactionRefund     TransactionType = "refund"
)

// TransactionStatus defines the transaction record lifecycle.
type TransactionStatus string

const (
	TransactionStarted TransactionStatus = "STARTED"
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// TransferStatus mirrors the gateway-side state of a split transfer.
type TransferStatus string

const (
	TransferOnHold     TransferStatus = "on_hold"
	TransferProcessing TransferStatus = "processing"
	TransferProcessed  TransferStatus = "processed"
	TransferFailed     TransferStatus = "failed"
)

// PaymentState is the explicit registration payment state machine. The
// original flags (`paid`, `refunded`) are derived views of this state.
type PaymentState string

const (
	PaymentStateUnpaid   PaymentState = "unpaid"
	PaymentStatePaid     PaymentState = "paid"
	PaymentStateRefunded PaymentState = "refunded"
)

// NewTournamentID validates and normalizes a tournament id.
func NewTournamentID(raw string) (TournamentID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TournamentID{}, fmt.Errorf("%w: empty value", ErrInvalidTournamentID)
	}
	return TournamentID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id TournamentID) String() string {
	return id.value
}

// NewOrganizerID validates and normalizes an organizer id.
func NewOrganizerID(raw string) (OrganizerID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return OrganizerID{}, fmt.Errorf("%w: empty value", ErrInvalidOrganizerID)
	}
	return OrganizerID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id OrganizerID) String() string {
	return id.value
}

// NewPlayerID validates and normalizes a player id.
func NewPlayerID(raw string) (PlayerID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PlayerID{}, fmt.Errorf("%w: empty value", ErrInvalidPlayerID)
	}
	return PlayerID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PlayerID) String() string {
	return id.value
}

// NewPaymentID validates and normalizes a gateway payment id.
func NewPaymentID(raw string) (PaymentID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PaymentID{}, fmt.Errorf("%w: empty value", ErrInvalidPaymentID)
	}
	return PaymentID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PaymentID) String() string {
	return id.value
}

// NewOrderID validates and normalizes a gateway order id.
func NewOrderID(raw string) (OrderID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return OrderID{}, fmt.Errorf("%w: empty value", ErrInvalidOrderID)
	}
	return OrderID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id OrderID) String() string {
	return id.value
}

// NewTransferID validates and normalizes a gateway transfer id.
func NewTransferID(raw string) (TransferID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TransferID{}, fmt.Errorf("%w: empty value", ErrInvalidTransferID)
	}
	return TransferID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id TransferID) String() string {
	return id.value
}

// NewTransactionID validates and normalizes a transaction id.
func NewTransactionID(raw string) (TransactionID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TransactionID{}, fmt.Errorf("%w: empty value", ErrInvalidTransactionID)
	}
	return TransactionID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id TransactionID) String() string {
	return id.value
}

// NewLinkedAccountID validates a gateway sub-account reference. The gateway
// only issues identifiers of the form acc_*.
func NewLinkedAccountID(raw string) (LinkedAccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "acc_") || len(trimmed) <= len("acc_") {
		return LinkedAccountID{}, fmt.Errorf("%w: must match acc_*", ErrInvalidLinkedAccountID)
	}
	return LinkedAccountID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id LinkedAccountID) String() string {
	return id.value
}

// NewPaise validates a non-negative minor-unit amount.
func NewPaise(raw int64) (Paise, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidPaise)
	}
	return Paise(raw), nil
}

// RupeesToPaise converts a decimal rupee amount into minor units, rounding to
// the nearest paisa.
func RupeesToPaise(rupees float64) (Paise, error) {
	if math.IsNaN(rupees) || math.IsInf(rupees, 0) || rupees < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPaise, rupees)
	}
	return Paise(math.Round(rupees * 100)), nil
}

// Int64 exposes the raw minor-unit value.
func (amount Paise) Int64() int64 {
	return int64(amount)
}

// Rupees converts the amount back to decimal currency.
func (amount Paise) Rupees() float64 {
	return float64(amount) / 100
}

// ParseSettlementStatus validates a stored settlement status.
func ParseSettlementStatus(raw string) (SettlementStatus, error) {
	switch SettlementStatus(raw) {
	case SettlementNone, SettlementHeld, SettlementReleased, SettlementPartialRelease, SettlementFailed, SettlementCompleted:
		return SettlementStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSettlementStatus, raw)
}

// String returns the stored representation.
func (status SettlementStatus) String() string {
	return string(status)
}

// ParsePaymentState validates a stored registration payment state.
func ParsePaymentState(raw string) (PaymentState, error) {
	switch PaymentState(raw) {
	case PaymentStateUnpaid, PaymentStatePaid, PaymentStateRefunded:
		return PaymentState(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentState, raw)
}

// String returns the stored representation.
func (state PaymentState) String() string {
	return string(state)
}

// String returns the stored representation.
func (status LinkedAccountStatus) String() string {
	return string(status)
}

// String returns the stored representation.
func (kind TransactionType) String() string {
	return string(kind)
}

// String returns the stored representation.
func (status TransactionStatus) String() string {
	return string(status)
}

// String returns the stored representation.
func (status TransferStatus) String() string {
	return string(status)
}

// Tournament is the aggregate view of a tournament's financial state. The
// counter fields are mutated exclusively through atomic deltas.
type Tournament struct {
	ID                  TournamentID
	OrganizerID         OrganizerID
	Name                string
	EntryFeeRupees      float64
	TotalCollections    Paise
	PaidPlayerCount     int64
	TotalHeldAmount     Paise
	TotalReleasedAmount Paise
	RefundedCount       int64
	TotalRefunded       Paise
	SettlementStatus    SettlementStatus
}

// Organizer holds the payout-side identity of a tournament organizer.
type Organizer struct {
	ID                  OrganizerID
	LinkedAccountID     string
	LinkedAccountStatus LinkedAccountStatus
}

// HasLinkedAccount reports whether payments can legally be split to this
// organizer.
func (organizer Organizer) HasLinkedAccount() bool {
	return organizer.LinkedAccountID != "" && organizer.LinkedAccountStatus == LinkedAccountActive
}

// RefundDetails captures the refund metadata stored on a registration.
type RefundDetails struct {
	RefundID          string
	Amount            Paise
	Percentage        float64
	ProcessingFee     Paise
	RefundedAtUnixUTC int64
}

// Player is one registration in a tournament.
type Player struct {
	ID            PlayerID
	TournamentID  TournamentID
	State         PaymentState
	PaymentID     string
	OrderID       string
	PaidAmount    Paise
	SeatsPaid     int64
	PaymentMethod string
	PaidAtUnixUTC int64
	Refund        *RefundDetails
}

// Paid is the derived legacy view of the payment state.
func (player Player) Paid() bool {
	return player.State == PaymentStatePaid
}

// Refunded is the derived legacy view of the payment state.
func (player Player) Refunded() bool {
	return player.State == PaymentStateRefunded
}

// Transaction is the idempotency-keyed record of one financial event.
type Transaction struct {
	ID                 TransactionID
	Type               TransactionType
	Status             TransactionStatus
	TournamentID       TournamentID
	PlayerID           PlayerID
	OrderID            string
	PaymentID          string
	Amount             Paise
	OrganizerShare     Paise
	PlatformCommission Paise
	Seats              int64
	TransferID         string
	TransferStatus     TransferStatus
	SettlementHeld     bool
	HoldUntilUnixUTC   int64
	FailureReason      string
	CreatedUnixUTC     int64
	UpdatedUnixUTC     int64
}

// VerificationOutcome classifies a verification attempt for the audit trail.
type VerificationOutcome string

const (
	VerificationVerified          VerificationOutcome = "VERIFIED"
	VerificationSignatureMismatch VerificationOutcome = "SIGNATURE_MISMATCH"
	VerificationAmountMismatch    VerificationOutcome = "AMOUNT_MISMATCH"
	VerificationReplay            VerificationOutcome = "REPLAY"
	VerificationInvalidStatus     VerificationOutcome = "INVALID_STATUS"
	VerificationGatewayError      VerificationOutcome = "GATEWAY_ERROR"
	VerificationFailed            VerificationOutcome = "FAILED"
)

// String returns the stored representation.
func (outcome VerificationOutcome) String() string {
	return string(outcome)
}

// VerificationLog is one append-only audit record of a verification attempt.
type VerificationLog struct {
	PaymentID      string
	OrderID        string
	Outcome        VerificationOutcome
	Detail         string
	CreatedUnixUTC int64
}

// RefundFailure is one append-only record in the refund-failure audit trail.
type RefundFailure struct {
	PaymentID      string
	TournamentID   string
	PlayerID       string
	Reason         string
	CreatedUnixUTC int64
}

// TournamentDeltas describes atomic increments applied to a tournament's
// aggregate counters. Zero fields leave the counter untouched.
type TournamentDeltas struct {
	TotalCollections    int64
	PaidPlayerCount     int64
	TotalHeldAmount     int64
	TotalReleasedAmount int64
	RefundedCount       int64
	TotalRefunded       int64
}

// PaidRecord is the payload committed when a registration transitions to paid.
type PaidRecord struct {
	PaymentID     PaymentID
	OrderID       string
	Amount        Paise
	Seats         int64
	PaymentMethod string
	PaidAtUnixUTC int64
}

// RefundRecord is the payload committed when a registration is refunded. The
// registration reverts to an open slot distinguishable from a never-paid one.
type RefundRecord struct {
	RefundID          string
	Amount            Paise
	Percentage        float64
	ProcessingFee     Paise
	RefundedAtUnixUTC int64
}

// Role names accepted by the authorization checks.
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the actor carries the given role.
func (actor Actor) HasRole(role string) bool {
	for _, candidate := range actor.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// IsOwnerOrAdmin reports whether the actor holds an operator role.
func (actor Actor) IsOwnerOrAdmin() bool {
	return actor.HasRole(RoleOwner) || actor.HasRole(RoleAdmin)
}
