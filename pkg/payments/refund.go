package payments

import (
	"context"
	"errors"
	"fmt"
)

// RefundPlayerRequest asks for a percentage-based refund of one registration.
type RefundPlayerRequest struct {
	TournamentID TournamentID
	PlayerID     PlayerID
	Percentage   float64
	Reason       string
}

// RefundPlayerResult reports an issued refund.
type RefundPlayerResult struct {
	RefundID      string
	Amount        Paise
	ProcessingFee Paise
}

// RefundPlayer issues a single-shot percentage refund against the original
// payment and reverses the tournament aggregates. The registration reverts to
// an open slot, distinguishable from a never-paid one by its refunded state.
func (service *Service) RefundPlayer(ctx context.Context, actor Actor, request RefundPlayerRequest) (RefundPlayerResult, error) {
	result, operationError := service.refundPlayer(ctx, actor, request)
	service.logOperation(ctx, OperationLog{
		Operation:    operationRefund,
		TournamentID: request.TournamentID.String(),
		PlayerID:     request.PlayerID.String(),
		Amount:       result.Amount,
		Error:        operationError,
	})
	return result, operationError
}

func (service *Service) refundPlayer(ctx context.Context, actor Actor, request RefundPlayerRequest) (RefundPlayerResult, error) {
	tournament, err := service.store.GetTournament(ctx, request.TournamentID)
	if err != nil {
		return RefundPlayerResult{}, err
	}
	if !actor.IsOwnerOrAdmin() && actor.UserID != tournament.OrganizerID.String() {
		return RefundPlayerResult{}, WrapError(operationRefund, "actor", "role", ErrPermissionDenied)
	}

	player, err := service.store.GetPlayer(ctx, request.TournamentID, request.PlayerID)
	if err != nil {
		return RefundPlayerResult{}, err
	}
	if player.State == PaymentStateRefunded {
		return RefundPlayerResult{}, WrapError(operationRefund, "player", "already_refunded", ErrAlreadyRefunded)
	}
	if player.State != PaymentStatePaid {
		return RefundPlayerResult{}, WrapError(operationRefund, "player", "not_paid", ErrPlayerNotPaid)
	}
	if player.PaymentID == "" {
		return RefundPlayerResult{}, WrapError(operationRefund, "player", "no_payment", ErrNoPaymentOnRecord)
	}
	paymentID, err := NewPaymentID(player.PaymentID)
	if err != nil {
		return RefundPlayerResult{}, err
	}

	refundAmount, processingFee, err := RefundSplit(player.PaidAmount, request.Percentage)
	if err != nil {
		return RefundPlayerResult{}, WrapError(operationRefund, "amount", "split", err)
	}

	notes := map[string]string{
		"tournament_id": request.TournamentID.String(),
		"player_id":     request.PlayerID.String(),
	}
	if request.Reason != "" {
		notes["reason"] = request.Reason
	}
	refund, err := service.gateway.CreateRefund(ctx, paymentID, RefundRequest{
		Amount: refundAmount,
		Speed:  defaultRefundSpeed,
		Notes:  notes,
	})
	if err != nil {
		service.appendRefundFailure(ctx, player, request, err)
		return RefundPlayerResult{}, WrapError(operationRefund, "gateway", "create_refund", fmt.Errorf("%w: %v", ErrGateway, err))
	}

	nowUnixUTC := service.nowFn()
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if err := txStore.MarkPlayerRefunded(ctx, request.TournamentID, request.PlayerID, RefundRecord{
			RefundID:          refund.ID,
			Amount:            refundAmount,
			Percentage:        request.Percentage,
			ProcessingFee:     processingFee,
			RefundedAtUnixUTC: nowUnixUTC,
		}); err != nil {
			if errors.Is(err, ErrPlayerNotPaid) {
				// Lost the race against a concurrent refund. Only this ledger
				// commit is guarded; the racing call's gateway refund was
				// already issued, and the gateway rejects further refunds only
				// once the captured amount is exhausted.
				return WrapError(operationRefund, "player", "already_refunded", ErrAlreadyRefunded)
			}
			return err
		}
		seats := player.SeatsPaid
		if seats <= 0 {
			seats = 1
		}
		if err := txStore.ApplyTournamentDeltas(ctx, request.TournamentID, TournamentDeltas{
			TotalCollections: -player.PaidAmount.Int64(),
			PaidPlayerCount:  -seats,
			RefundedCount:    1,
			TotalRefunded:    refundAmount.Int64(),
		}); err != nil {
			return err
		}
		transactionID, err := NewTransactionID(service.newID())
		if err != nil {
			return err
		}
		return txStore.UpsertTransaction(ctx, Transaction{
			ID:             transactionID,
			Type:           TransactionRefund,
			Status:         TransactionSuccess,
			TournamentID:   request.TournamentID,
			PlayerID:       request.PlayerID,
			OrderID:        player.OrderID,
			PaymentID:      player.PaymentID,
			Amount:         refundAmount,
			Seats:          seats,
			CreatedUnixUTC: nowUnixUTC,
			UpdatedUnixUTC: nowUnixUTC,
		})
	})
	if operationError != nil {
		return RefundPlayerResult{}, operationError
	}
	return RefundPlayerResult{
		RefundID:      refund.ID,
		Amount:        refundAmount,
		ProcessingFee: processingFee,
	}, nil
}

// appendRefundFailure writes to the refund-failure audit trail, kept separate
// from the payment-verification log.
func (service *Service) appendRefundFailure(ctx context.Context, player Player, request RefundPlayerRequest, cause error) {
	_ = service.store.AppendRefundFailure(ctx, RefundFailure{
		PaymentID:      player.PaymentID,
		TournamentID:   request.TournamentID.String(),
		PlayerID:       request.PlayerID.String(),
		Reason:         cause.Error(),
		CreatedUnixUTC: service.nowFn(),
	})
}
