package payments

import "context"

// Store is the persistence contract used by Service. Implementations must
// provide single-transaction isolation: two concurrent WithTx bodies touching
// the same player observe each other's committed state, never a torn write.
// (gormstore implements this already.)
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	GetTournament(ctx context.Context, tournamentID TournamentID) (Tournament, error)
	ApplyTournamentDeltas(ctx context.Context, tournamentID TournamentID, deltas TournamentDeltas) error
	SetSettlementStatus(ctx context.Context, tournamentID TournamentID, status SettlementStatus) error

	GetOrganizer(ctx context.Context, organizerID OrganizerID) (Organizer, error)
	SetLinkedAccount(ctx context.Context, organizerID OrganizerID, account LinkedAccountID, status LinkedAccountStatus) error

	GetPlayer(ctx context.Context, tournamentID TournamentID, playerID PlayerID) (Player, error)
	// MarkPlayerPaid conditionally transitions a registration out of the paid=false
	// states; it returns ErrPlayerAlreadyPaid when the registration is already paid.
	MarkPlayerPaid(ctx context.Context, tournamentID TournamentID, playerID PlayerID, record PaidRecord) error
	// MarkPlayerRefunded conditionally transitions paid -> refunded; it returns
	// ErrPlayerNotPaid when the registration is not currently paid.
	MarkPlayerRefunded(ctx context.Context, tournamentID TournamentID, playerID PlayerID, record RefundRecord) error

	GetTransaction(ctx context.Context, transactionID TransactionID) (Transaction, error)
	UpsertTransaction(ctx context.Context, transaction Transaction) error
	FindTransactionByOrder(ctx context.Context, orderID OrderID) (Transaction, error)
	FindTransactionByPayment(ctx context.Context, paymentID PaymentID) (Transaction, error)
	ListHeldCollections(ctx context.Context, tournamentID TournamentID) ([]Transaction, error)
	ListHeldPastDeadline(ctx context.Context, beforeUnixUTC int64) ([]Transaction, error)
	// MarkTransferReleased clears the settlement hold on a transaction and
	// records the final transfer id and status.
	MarkTransferReleased(ctx context.Context, transactionID TransactionID, transferID TransferID, status TransferStatus) error
	SetTransferStatus(ctx context.Context, transactionID TransactionID, status TransferStatus) error

	AppendVerificationLog(ctx context.Context, log VerificationLog) error
	HasVerifiedPayment(ctx context.Context, paymentID PaymentID) (bool, error)
	AppendRefundFailure(ctx context.Context, failure RefundFailure) error
}
