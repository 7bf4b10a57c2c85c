package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

const (
	errorOperationStore        = "store"
	errorSubjectTournament     = "tournament"
	errorSubjectOrganizer      = "organizer"
	errorSubjectPlayer         = "player"
	errorSubjectTransaction    = "transaction"
	errorSubjectVerification   = "verification"
	errorSubjectRefundFailure  = "refund_failure"
	errorCodeGet               = "get"
	errorCodeInvalid           = "invalid"
	errorCodeList              = "list"
	errorCodeInsert            = "insert"
	errorCodeUpdate            = "update"
	errorCodeApplyDeltas       = "apply_deltas"
	errorCodeMarkPaid          = "mark_paid"
	errorCodeMarkRefunded      = "mark_refunded"
	errorCodeMarkReleased      = "mark_released"
	errorCodeSetTransferStatus = "set_transfer_status"
)

// Store implements payments.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the payment tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Organizer{},
		&Tournament{},
		&Player{},
		&Transaction{},
		&VerificationLog{},
		&RefundFailure{},
	)
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore payments.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetTournament(ctx context.Context, tournamentID payments.TournamentID) (payments.Tournament, error) {
	var row Tournament
	err := store.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return payments.Tournament{}, wrapStoreError(errorSubjectTournament, errorCodeGet, payments.ErrTournamentNotFound)
		}
		return payments.Tournament{}, wrapStoreError(errorSubjectTournament, errorCodeGet, err)
	}
	tournament, err := mapTournament(row)
	if err != nil {
		return payments.Tournament{}, wrapStoreError(errorSubjectTournament, errorCodeInvalid, err)
	}
	return tournament, nil
}

func (store *Store) ApplyTournamentDeltas(ctx context.Context, tournamentID payments.TournamentID, deltas payments.TournamentDeltas) error {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if deltas.TotalCollections != 0 {
		updates["total_collections"] = gorm.Expr("total_collections + ?", deltas.TotalCollections)
	}
	if deltas.PaidPlayerCount != 0 {
		updates["paid_player_count"] = gorm.Expr("paid_player_count + ?", deltas.PaidPlayerCount)
	}
	if deltas.TotalHeldAmount != 0 {
		updates["total_held_amount"] = gorm.Expr("total_held_amount + ?", deltas.TotalHeldAmount)
	}
	if deltas.TotalReleasedAmount != 0 {
		updates["total_released_amount"] = gorm.Expr("total_released_amount + ?", deltas.TotalReleasedAmount)
	}
	if deltas.RefundedCount != 0 {
		updates["refunded_count"] = gorm.Expr("refunded_count + ?", deltas.RefundedCount)
	}
	if deltas.TotalRefunded != 0 {
		updates["total_refunded"] = gorm.Expr("total_refunded + ?", deltas.TotalRefunded)
	}
	result := store.db.WithContext(ctx).
		Model(&Tournament{}).
		Where("tournament_id = ?", tournamentID.String()).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectTournament, errorCodeApplyDeltas, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectTournament, errorCodeApplyDeltas, payments.ErrTournamentNotFound)
	}
	return nil
}

func (store *Store) SetSettlementStatus(ctx context.Context, tournamentID payments.TournamentID, status payments.SettlementStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Tournament{}).
		Where("tournament_id = ?", tournamentID.String()).
		Updates(map[string]interface{}{
			"settlement_status": status.String(),
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectTournament, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectTournament, errorCodeUpdate, payments.ErrTournamentNotFound)
	}
	return nil
}

func (store *Store) GetOrganizer(ctx context.Context, organizerID payments.OrganizerID) (payments.Organizer, error) {
	var row Organizer
	err := store.db.WithContext(ctx).
		Where("organizer_id = ?", organizerID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return payments.Organizer{}, wrapStoreError(errorSubjectOrganizer, errorCodeGet, payments.ErrOrganizerNotFound)
		}
		return payments.Organizer{}, wrapStoreError(errorSubjectOrganizer, errorCodeGet, err)
	}
	organizer, err := mapOrganizer(row)
	if err != nil {
		return payments.Organizer{}, wrapStoreError(errorSubjectOrganizer, errorCodeInvalid, err)
	}
	return organizer, nil
}

func (store *Store) SetLinkedAccount(ctx context.Context, organizerID payments.OrganizerID, account payments.LinkedAccountID, status payments.LinkedAccountStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Organizer{}).
		Where("organizer_id = ?", organizerID.String()).
		Updates(map[string]interface{}{
			"linked_account_id":     account.String(),
			"linked_account_status": status.String(),
			"updated_at":            time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectOrganizer, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectOrganizer, errorCodeUpdate, payments.ErrOrganizerNotFound)
	}
	return nil
}

func (store *Store) GetPlayer(ctx context.Context, tournamentID payments.TournamentID, playerID payments.PlayerID) (payments.Player, error) {
	var row Player
	err := store.db.WithContext(ctx).
		Where("tournament_id = ? AND player_id = ?", tournamentID.String(), playerID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return payments.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeGet, payments.ErrPlayerNotFound)
		}
		return payments.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeGet, err)
	}
	player, err := mapPlayer(row)
	if err != nil {
		return payments.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeInvalid, err)
	}
	return player, nil
}

func (store *Store) MarkPlayerPaid(ctx context.Context, tournamentID payments.TournamentID, playerID payments.PlayerID, record payments.PaidRecord) error {
	paidAt := time.Unix(record.PaidAtUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&Player{}).
		Where("tournament_id = ? AND player_id = ? AND payment_state <> ?",
			tournamentID.String(), playerID.String(), payments.PaymentStatePaid.String()).
		Updates(map[string]interface{}{
			"payment_state":  payments.PaymentStatePaid.String(),
			"payment_id":     record.PaymentID.String(),
			"order_id":       record.OrderID,
			"paid_amount":    record.Amount.Int64(),
			"seats_paid":     record.Seats,
			"payment_method": record.PaymentMethod,
			"paid_at":        &paidAt,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPlayer, errorCodeMarkPaid, result.Error)
	}
	if result.RowsAffected == 0 {
		return store.classifyPlayerConflict(ctx, tournamentID, playerID, errorCodeMarkPaid, payments.ErrPlayerAlreadyPaid)
	}
	return nil
}

func (store *Store) MarkPlayerRefunded(ctx context.Context, tournamentID payments.TournamentID, playerID payments.PlayerID, record payments.RefundRecord) error {
	refundJSON, err := json.Marshal(payments.RefundDetails{
		RefundID:          record.RefundID,
		Amount:            record.Amount,
		Percentage:        record.Percentage,
		ProcessingFee:     record.ProcessingFee,
		RefundedAtUnixUTC: record.RefundedAtUnixUTC,
	})
	if err != nil {
		return wrapStoreError(errorSubjectPlayer, errorCodeInvalid, err)
	}
	result := store.db.WithContext(ctx).
		Model(&Player{}).
		Where("tournament_id = ? AND player_id = ? AND payment_state = ?",
			tournamentID.String(), playerID.String(), payments.PaymentStatePaid.String()).
		Updates(map[string]interface{}{
			"payment_state": payments.PaymentStateRefunded.String(),
			"refund":        refundJSON,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPlayer, errorCodeMarkRefunded, result.Error)
	}
	if result.RowsAffected == 0 {
		return store.classifyPlayerConflict(ctx, tournamentID, playerID, errorCodeMarkRefunded, payments.ErrPlayerNotPaid)
	}
	return nil
}

// classifyPlayerConflict distinguishes a guarded update that matched no rows
// because the player is absent from one that lost the state-condition race.
func (store *Store) classifyPlayerConflict(ctx context.Context, tournamentID payments.TournamentID, playerID payments.PlayerID, code string, conflict error) error {
	var row Player
	err := store.db.WithContext(ctx).
		Where("tournament_id = ? AND player_id = ?", tournamentID.String(), playerID.String()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wrapStoreError(errorSubjectPlayer, code, payments.ErrPlayerNotFound)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPlayer, code, err)
	}
	return wrapStoreError(errorSubjectPlayer, code, conflict)
}

func (store *Store) GetTransaction(ctx context.Context, transactionID payments.TransactionID) (payments.Transaction, error) {
	var row Transaction
	err := store.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return payments.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeGet, payments.ErrTransactionNotFound)
		}
		return payments.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeGet, err)
	}
	return mapTransactionOrError(row)
}

func (store *Store) UpsertTransaction(ctx context.Context, transaction payments.Transaction) error {
	row := transactionRow(transaction)
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) FindTransactionByOrder(ctx context.Context, orderID payments.OrderID) (payments.Transaction, error) {
	var row Transaction
	err := store.db.WithContext(ctx).
		Where("order_id = ? AND type = ?", orderID.String(), payments.TransactionCollection.String()).
		Order("created_at DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return payments.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeGet, payments.ErrTransactionNotFound)
		}
		return payments.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeGet, err)
	}
	return mapTransactionOrError(row)
}

func (store *Store) FindTransactionByPayment(ctx context.Context, paymentID payments.PaymentID) (payments.Transaction, error) {
	var row Transaction
	err := store.db.WithContext(ctx).
		Where("payment_id = ? AND type = ?", paymentID.String(), payments.TransactionCollection.String()).
		Order("created_at DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return payments.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeGet, payments.ErrTransactionNotFound)
		}
		return payments.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeGet, err)
	}
	return mapTransactionOrError(row)
}

func (store *Store) ListHeldCollections(ctx context.Context, tournamentID payments.TournamentID) ([]payments.Transaction, error) {
	var rows []Transaction
	err := store.db.WithContext(ctx).
		Where("tournament_id = ? AND type = ? AND settlement_held = ?",
			tournamentID.String(), payments.TransactionCollection.String(), true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	return mapTransactions(rows)
}

func (store *Store) ListHeldPastDeadline(ctx context.Context, beforeUnixUTC int64) ([]payments.Transaction, error) {
	before := time.Unix(beforeUnixUTC, 0).UTC()
	var rows []Transaction
	err := store.db.WithContext(ctx).
		Where("type = ? AND settlement_held = ? AND hold_until IS NOT NULL AND hold_until <= ?",
			payments.TransactionCollection.String(), true, before).
		Order("hold_until ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	return mapTransactions(rows)
}

func (store *Store) MarkTransferReleased(ctx context.Context, transactionID payments.TransactionID, transferID payments.TransferID, status payments.TransferStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("transaction_id = ?", transactionID.String()).
		Updates(map[string]interface{}{
			"settlement_held": false,
			"transfer_id":     transferID.String(),
			"transfer_status": status.String(),
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeMarkReleased, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectTransaction, errorCodeMarkReleased, payments.ErrTransactionNotFound)
	}
	return nil
}

func (store *Store) SetTransferStatus(ctx context.Context, transactionID payments.TransactionID, status payments.TransferStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("transaction_id = ?", transactionID.String()).
		Updates(map[string]interface{}{
			"transfer_status": status.String(),
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeSetTransferStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectTransaction, errorCodeSetTransferStatus, payments.ErrTransactionNotFound)
	}
	return nil
}

func (store *Store) AppendVerificationLog(ctx context.Context, log payments.VerificationLog) error {
	row := VerificationLog{
		PaymentID: log.PaymentID,
		OrderID:   log.OrderID,
		Outcome:   log.Outcome.String(),
		Detail:    log.Detail,
		CreatedAt: time.Unix(log.CreatedUnixUTC, 0).UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectVerification, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) HasVerifiedPayment(ctx context.Context, paymentID payments.PaymentID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&VerificationLog{}).
		Where("payment_id = ? AND outcome = ?", paymentID.String(), payments.VerificationVerified.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectVerification, errorCodeGet, err)
	}
	return count > 0, nil
}

func (store *Store) AppendRefundFailure(ctx context.Context, failure payments.RefundFailure) error {
	row := RefundFailure{
		PaymentID:    failure.PaymentID,
		TournamentID: failure.TournamentID,
		PlayerID:     failure.PlayerID,
		Reason:       failure.Reason,
		CreatedAt:    time.Unix(failure.CreatedUnixUTC, 0).UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectRefundFailure, errorCodeInsert, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return payments.WrapError(errorOperationStore, subject, code, err)
}

func mapTournament(row Tournament) (payments.Tournament, error) {
	tournamentID, err := payments.NewTournamentID(row.TournamentID)
	if err != nil {
		return payments.Tournament{}, err
	}
	organizerID, err := payments.NewOrganizerID(row.OrganizerID)
	if err != nil {
		return payments.Tournament{}, err
	}
	status, err := payments.ParseSettlementStatus(row.SettlementStatus)
	if err != nil {
		return payments.Tournament{}, err
	}
	return payments.Tournament{
		ID:                  tournamentID,
		OrganizerID:         organizerID,
		Name:                row.Name,
		EntryFeeRupees:      row.EntryFeeRupees,
		TotalCollections:    payments.Paise(row.TotalCollections),
		PaidPlayerCount:     row.PaidPlayerCount,
		TotalHeldAmount:     payments.Paise(row.TotalHeldAmount),
		TotalReleasedAmount: payments.Paise(row.TotalReleasedAmount),
		RefundedCount:       row.RefundedCount,
		TotalRefunded:       payments.Paise(row.TotalRefunded),
		SettlementStatus:    status,
	}, nil
}

func mapOrganizer(row Organizer) (payments.Organizer, error) {
	organizerID, err := payments.NewOrganizerID(row.OrganizerID)
	if err != nil {
		return payments.Organizer{}, err
	}
	return payments.Organizer{
		ID:                  organizerID,
		LinkedAccountID:     row.LinkedAccountID,
		LinkedAccountStatus: payments.LinkedAccountStatus(row.LinkedAccountStatus),
	}, nil
}

func mapPlayer(row Player) (payments.Player, error) {
	playerID, err := payments.NewPlayerID(row.PlayerID)
	if err != nil {
		return payments.Player{}, err
	}
	tournamentID, err := payments.NewTournamentID(row.TournamentID)
	if err != nil {
		return payments.Player{}, err
	}
	state, err := payments.ParsePaymentState(row.PaymentState)
	if err != nil {
		return payments.Player{}, err
	}
	player := payments.Player{
		ID:            playerID,
		TournamentID:  tournamentID,
		State:         state,
		PaymentID:     row.PaymentID,
		OrderID:       row.OrderID,
		PaidAmount:    payments.Paise(row.PaidAmount),
		SeatsPaid:     row.SeatsPaid,
		PaymentMethod: row.PaymentMethod,
		PaidAtUnixUTC: timeOrZero(row.PaidAt),
	}
	if len(row.Refund) > 0 {
		var refund payments.RefundDetails
		if err := json.Unmarshal(row.Refund, &refund); err != nil {
			return payments.Player{}, err
		}
		player.Refund = &refund
	}
	return player, nil
}

func transactionRow(transaction payments.Transaction) Transaction {
	var holdUntil *time.Time
	if transaction.HoldUntilUnixUTC != 0 {
		value := time.Unix(transaction.HoldUntilUnixUTC, 0).UTC()
		holdUntil = &value
	}
	createdAt := time.Unix(transaction.CreatedUnixUTC, 0).UTC()
	if transaction.CreatedUnixUTC == 0 {
		createdAt = time.Now().UTC()
	}
	updatedAt := time.Unix(transaction.UpdatedUnixUTC, 0).UTC()
	if transaction.UpdatedUnixUTC == 0 {
		updatedAt = createdAt
	}
	return Transaction{
		TransactionID:      transaction.ID.String(),
		Type:               transaction.Type.String(),
		Status:             transaction.Status.String(),
		TournamentID:       transaction.TournamentID.String(),
		PlayerID:           transaction.PlayerID.String(),
		OrderID:            transaction.OrderID,
		PaymentID:          transaction.PaymentID,
		Amount:             transaction.Amount.Int64(),
		OrganizerShare:     transaction.OrganizerShare.Int64(),
		PlatformCommission: transaction.PlatformCommission.Int64(),
		Seats:              transaction.Seats,
		TransferID:         transaction.TransferID,
		TransferStatus:     transaction.TransferStatus.String(),
		SettlementHeld:     transaction.SettlementHeld,
		HoldUntil:          holdUntil,
		FailureReason:      transaction.FailureReason,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}
}

func mapTransactionOrError(row Transaction) (payments.Transaction, error) {
	transaction, err := mapTransaction(row)
	if err != nil {
		return payments.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	return transaction, nil
}

func mapTransaction(row Transaction) (payments.Transaction, error) {
	transactionID, err := payments.NewTransactionID(row.TransactionID)
	if err != nil {
		return payments.Transaction{}, err
	}
	transaction := payments.Transaction{
		ID:                 transactionID,
		Type:               payments.TransactionType(row.Type),
		Status:             payments.TransactionStatus(row.Status),
		OrderID:            row.OrderID,
		PaymentID:          row.PaymentID,
		Amount:             payments.Paise(row.Amount),
		OrganizerShare:     payments.Paise(row.OrganizerShare),
		PlatformCommission: payments.Paise(row.PlatformCommission),
		Seats:              row.Seats,
		TransferID:         row.TransferID,
		TransferStatus:     payments.TransferStatus(row.TransferStatus),
		SettlementHeld:     row.SettlementHeld,
		HoldUntilUnixUTC:   timeOrZero(row.HoldUntil),
		FailureReason:      row.FailureReason,
		CreatedUnixUTC:     row.CreatedAt.Unix(),
		UpdatedUnixUTC:     row.UpdatedAt.Unix(),
	}
	if row.TournamentID != "" {
		tournamentID, err := payments.NewTournamentID(row.TournamentID)
		if err != nil {
			return payments.Transaction{}, err
		}
		transaction.TournamentID = tournamentID
	}
	if row.PlayerID != "" {
		playerID, err := payments.NewPlayerID(row.PlayerID)
		if err != nil {
			return payments.Transaction{}, err
		}
		transaction.PlayerID = playerID
	}
	return transaction, nil
}

func mapTransactions(rows []Transaction) ([]payments.Transaction, error) {
	transactions := make([]payments.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransaction(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}
