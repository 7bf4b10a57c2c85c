package payments

import (
	"context"
	"fmt"
)

// ReleaseFailure records one transfer that could not be released.
type ReleaseFailure struct {
	TransactionID string
	TransferID    string
	Reason        string
}

// ReleaseResult reports a batch settlement outcome. Callers must surface
// partial failure to the operator instead of collapsing it into a boolean.
type ReleaseResult struct {
	ReleasedCount  int
	FailedCount    int
	ReleasedAmount Paise
	Failures       []ReleaseFailure
	Status         SettlementStatus
}

// ReleaseSettlement releases every held transfer for a tournament. Transfers
// are released one at a time and each failure is recorded and skipped, so a
// partially successful batch can be salvaged by retrying later.
func (service *Service) ReleaseSettlement(ctx context.Context, actor Actor, tournamentID TournamentID) (ReleaseResult, error) {
	result, operationError := service.releaseSettlement(ctx, actor, tournamentID)
	service.logOperation(ctx, OperationLog{
		Operation:    operationRelease,
		TournamentID: tournamentID.String(),
		Amount:       result.ReleasedAmount,
		Error:        operationError,
	})
	return result, operationError
}

func (service *Service) releaseSettlement(ctx context.Context, actor Actor, tournamentID TournamentID) (ReleaseResult, error) {
	if !actor.IsOwnerOrAdmin() {
		return ReleaseResult{}, WrapError(operationRelease, "actor", "role", ErrPermissionDenied)
	}
	tournament, err := service.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return ReleaseResult{}, err
	}
	if tournament.SettlementStatus == SettlementReleased || tournament.SettlementStatus == SettlementCompleted {
		return ReleaseResult{}, WrapError(operationRelease, "tournament", "already_released", ErrSettlementReleased)
	}
	held, err := service.store.ListHeldCollections(ctx, tournamentID)
	if err != nil {
		return ReleaseResult{}, err
	}
	if len(held) == 0 {
		return ReleaseResult{}, WrapError(operationRelease, "tournament", "no_held_transfers", ErrNoHeldTransfers)
	}

	result := ReleaseResult{}
	for _, transaction := range held {
		releasedAmount, releaseErr := service.releaseOne(ctx, transaction)
		if releaseErr != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, ReleaseFailure{
				TransactionID: transaction.ID.String(),
				TransferID:    transaction.TransferID,
				Reason:        releaseErr.Error(),
			})
			continue
		}
		result.ReleasedCount++
		result.ReleasedAmount += releasedAmount
	}

	switch {
	case result.FailedCount == 0:
		result.Status = SettlementReleased
	case result.ReleasedCount > 0:
		result.Status = SettlementPartialRelease
	default:
		result.Status = SettlementFailed
	}

	finalizeError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if err := txStore.SetSettlementStatus(ctx, tournamentID, result.Status); err != nil {
			return err
		}
		if result.ReleasedAmount == 0 {
			return nil
		}
		return txStore.ApplyTournamentDeltas(ctx, tournamentID, TournamentDeltas{
			TotalHeldAmount:     -result.ReleasedAmount.Int64(),
			TotalReleasedAmount: result.ReleasedAmount.Int64(),
		})
	})
	if finalizeError != nil {
		return result, finalizeError
	}
	return result, nil
}

// releaseOne resolves a transaction's transfer and clears its hold. The held
// amount released toward the organizer is the organizer share, not the gross.
func (service *Service) releaseOne(ctx context.Context, transaction Transaction) (Paise, error) {
	transferID, err := service.resolveTransferID(ctx, transaction)
	if err != nil {
		return 0, err
	}
	if _, err := service.gateway.ReleaseTransfer(ctx, transferID); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if err := service.store.MarkTransferReleased(ctx, transaction.ID, transferID, TransferProcessing); err != nil {
		return 0, err
	}
	return transaction.OrganizerShare, nil
}

// resolveTransferID prefers the transfer id recorded on the transaction and
// falls back to a gateway lookup by order when the record omits it.
func (service *Service) resolveTransferID(ctx context.Context, transaction Transaction) (TransferID, error) {
	if transaction.TransferID != "" {
		return NewTransferID(transaction.TransferID)
	}
	if transaction.OrderID == "" {
		return TransferID{}, fmt.Errorf("%w: transaction %s has no order", ErrInvalidTransferID, transaction.ID.String())
	}
	orderID, err := NewOrderID(transaction.OrderID)
	if err != nil {
		return TransferID{}, err
	}
	transfers, err := service.gateway.FetchTransfersByOrder(ctx, orderID)
	if err != nil {
		return TransferID{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if len(transfers) == 0 {
		return TransferID{}, fmt.Errorf("%w: no transfers for order %s", ErrInvalidTransferID, transaction.OrderID)
	}
	return NewTransferID(transfers[0].ID)
}
