package payments

import (
	"context"
	"fmt"
)

// ReconcileResult reports one reconciliation sweep.
type ReconcileResult struct {
	Scanned int
	Folded  int
}

// ReconcileHeldTransfers sweeps transactions still marked held past their
// gateway hold deadline. The gateway auto-releases transfers once the hold
// window elapses without ever notifying us through a settlement call, so the
// sweep re-reads each live transfer and folds gateway-side releases back into
// the transaction and tournament state.
func (service *Service) ReconcileHeldTransfers(ctx context.Context, nowUnixUTC int64) (ReconcileResult, error) {
	result, operationError := service.reconcileHeldTransfers(ctx, nowUnixUTC)
	service.logOperation(ctx, OperationLog{
		Operation: operationReconcile,
		Error:     operationError,
	})
	return result, operationError
}

func (service *Service) reconcileHeldTransfers(ctx context.Context, nowUnixUTC int64) (ReconcileResult, error) {
	stale, err := service.store.ListHeldPastDeadline(ctx, nowUnixUTC)
	if err != nil {
		return ReconcileResult{}, err
	}
	result := ReconcileResult{Scanned: len(stale)}
	var firstError error
	for _, transaction := range stale {
		folded, foldErr := service.reconcileOne(ctx, transaction)
		if foldErr != nil {
			if firstError == nil {
				firstError = foldErr
			}
			continue
		}
		if folded {
			result.Folded++
		}
	}
	if firstError != nil {
		return result, WrapError(operationReconcile, "transfer", "fold", firstError)
	}
	return result, nil
}

func (service *Service) reconcileOne(ctx context.Context, transaction Transaction) (bool, error) {
	transferID, err := service.resolveTransferID(ctx, transaction)
	if err != nil {
		return false, err
	}
	transfer, err := service.gateway.FetchTransfer(ctx, transferID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if transfer.OnHold {
		return false, nil
	}

	status := TransferProcessed
	if transfer.Status == TransferFailed.String() {
		status = TransferFailed
	}
	foldError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if err := txStore.MarkTransferReleased(ctx, transaction.ID, transferID, status); err != nil {
			return err
		}
		if status == TransferFailed {
			return nil
		}
		if err := txStore.ApplyTournamentDeltas(ctx, transaction.TournamentID, TournamentDeltas{
			TotalHeldAmount:     -transaction.OrganizerShare.Int64(),
			TotalReleasedAmount: transaction.OrganizerShare.Int64(),
		}); err != nil {
			return err
		}
		remaining, err := txStore.ListHeldCollections(ctx, transaction.TournamentID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			return txStore.SetSettlementStatus(ctx, transaction.TournamentID, SettlementReleased)
		}
		return nil
	})
	if foldError != nil {
		return false, foldError
	}
	return true, nil
}
