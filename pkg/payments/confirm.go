package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ConfirmResult summarizes one confirmation attempt.
type ConfirmResult struct {
	PaymentID        string
	OrderID          string
	Amount           Paise
	Seats            int64
	AlreadyConfirmed bool
}

// VerifyRequest is the client-callback confirmation input, delivered by the
// paying client after gateway checkout completes. Order id and signature are
// optional; when present the checkout signature is enforced.
type VerifyRequest struct {
	PaymentID    PaymentID
	OrderID      string
	Signature    string
	TournamentID string
	PlayerID     string
}

// confirmation carries the resolved facts both confirmation paths converge on
// before the shared commit.
type confirmation struct {
	paymentID    PaymentID
	orderID      string
	amount       Paise
	method       string
	tournamentID TournamentID
	playerID     PlayerID
	seats        int64
}

// ConfirmFromWebhook reacts to a signed gateway notification. The webhook and
// the client callback race freely: both funnel into the same guarded commit,
// so redelivery and ordering are irrelevant to the final state.
func (service *Service) ConfirmFromWebhook(ctx context.Context, rawBody []byte, signature string) (ConfirmResult, error) {
	result, operationError := service.confirmFromWebhook(ctx, rawBody, signature)
	service.logOperation(ctx, OperationLog{
		Operation: operationConfirm,
		PaymentID: result.PaymentID,
		OrderID:   result.OrderID,
		Amount:    result.Amount,
		Error:     operationError,
	})
	return result, operationError
}

func (service *Service) confirmFromWebhook(ctx context.Context, rawBody []byte, signature string) (ConfirmResult, error) {
	if !service.verifier.VerifyWebhook(rawBody, signature) {
		return ConfirmResult{}, WrapError(operationConfirm, "webhook", "signature", ErrSignatureMismatch)
	}
	event, err := ParseWebhookEvent(rawBody)
	if err != nil {
		return ConfirmResult{}, WrapError(operationConfirm, "webhook", "parse", err)
	}

	switch event.Kind {
	case EventPaymentCaptured, EventOrderPaid:
		return service.confirmWebhookPayment(ctx, event.Payment, false)
	case EventPaymentAuthorized:
		return service.confirmWebhookPayment(ctx, event.Payment, true)
	case EventPaymentFailed:
		return service.recordPaymentFailure(ctx, event.Payment)
	case EventTransferProcessed:
		return service.recordTransferOutcome(ctx, event.Transfer, TransferProcessed)
	case EventTransferFailed:
		return service.recordTransferOutcome(ctx, event.Transfer, TransferFailed)
	}
	// Unknown events acknowledge without effect so the gateway stops redelivering.
	return ConfirmResult{}, nil
}

func (service *Service) confirmWebhookPayment(ctx context.Context, payment *WebhookPayment, needsCapture bool) (ConfirmResult, error) {
	if payment == nil {
		return ConfirmResult{}, WrapError(operationConfirm, "webhook", "parse", fmt.Errorf("%w: missing payment entity", ErrInvalidWebhookEvent))
	}
	paymentID, err := NewPaymentID(payment.ID)
	if err != nil {
		return ConfirmResult{}, err
	}
	amount, err := NewPaise(payment.Amount)
	if err != nil {
		return ConfirmResult{}, err
	}
	if needsCapture {
		// Authorization alone does not move money; capture explicitly before
		// committing. A concurrent capture reported by the gateway is success.
		currency := payment.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		if _, captureErr := service.gateway.CapturePayment(ctx, paymentID, amount, currency); captureErr != nil {
			if !errors.Is(captureErr, ErrPaymentAlreadyCaptured) {
				service.appendAudit(ctx, paymentID.String(), payment.OrderID, VerificationGatewayError, captureErr.Error())
				return ConfirmResult{}, WrapError(operationConfirm, "gateway", "capture", fmt.Errorf("%w: %v", ErrGateway, captureErr))
			}
		}
	}
	info := confirmation{
		paymentID: paymentID,
		orderID:   payment.OrderID,
		amount:    amount,
		method:    payment.Method,
		seats:     payment.NoteInt("seats", 0),
	}
	if tournamentID, idErr := NewTournamentID(payment.NoteString("tournament_id")); idErr == nil {
		info.tournamentID = tournamentID
	}
	if playerID, idErr := NewPlayerID(payment.NoteString("player_id")); idErr == nil {
		info.playerID = playerID
	}
	return service.commitConfirmation(ctx, info)
}

// ConfirmFromClient runs the post-checkout verification path. Every input the
// client supplies is re-derived from the gateway before any state changes.
func (service *Service) ConfirmFromClient(ctx context.Context, request VerifyRequest) (ConfirmResult, error) {
	result, operationError := service.confirmFromClient(ctx, request)
	service.logOperation(ctx, OperationLog{
		Operation:    operationConfirm,
		TournamentID: request.TournamentID,
		PlayerID:     request.PlayerID,
		PaymentID:    request.PaymentID.String(),
		OrderID:      result.OrderID,
		Amount:       result.Amount,
		Error:        operationError,
	})
	return result, operationError
}

func (service *Service) confirmFromClient(ctx context.Context, request VerifyRequest) (ConfirmResult, error) {
	paymentID := request.PaymentID

	verified, err := service.store.HasVerifiedPayment(ctx, paymentID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !verified {
		if transaction, findErr := service.store.FindTransactionByPayment(ctx, paymentID); findErr == nil {
			verified = transaction.Status == TransactionSuccess
		}
	}
	if verified {
		service.appendAudit(ctx, paymentID.String(), request.OrderID, VerificationReplay, "payment already verified")
		return ConfirmResult{}, WrapError(operationConfirm, "verification", "replay", ErrDuplicateVerification)
	}

	if request.OrderID != "" && request.Signature != "" {
		orderID, idErr := NewOrderID(request.OrderID)
		if idErr != nil {
			return ConfirmResult{}, idErr
		}
		if !service.verifier.VerifyPayment(orderID, paymentID, request.Signature) {
			service.appendAudit(ctx, paymentID.String(), request.OrderID, VerificationSignatureMismatch, "checkout signature mismatch")
			return ConfirmResult{}, WrapError(operationConfirm, "verification", "signature", ErrSignatureMismatch)
		}
	}

	payment, err := service.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		service.appendAudit(ctx, paymentID.String(), request.OrderID, VerificationGatewayError, err.Error())
		return ConfirmResult{}, WrapError(operationConfirm, "gateway", "fetch_payment", fmt.Errorf("%w: %v", ErrGateway, err))
	}
	if payment.Status != PaymentCaptured && payment.Status != PaymentAuthorized {
		service.appendAudit(ctx, paymentID.String(), payment.OrderID, VerificationInvalidStatus, "payment status "+payment.Status.String())
		return ConfirmResult{}, WrapError(operationConfirm, "verification", "status", ErrPaymentNotCapturable)
	}

	expected, hasExpected := service.expectedTransaction(ctx, payment.OrderID, paymentID)
	if hasExpected && expected.Status == TransactionStarted {
		difference := payment.Amount.Int64() - expected.Amount.Int64()
		if difference < 0 {
			difference = -difference
		}
		if difference > AmountTolerancePaise {
			detail := fmt.Sprintf("expected %d paise, gateway reports %d", expected.Amount.Int64(), payment.Amount.Int64())
			service.appendAudit(ctx, paymentID.String(), payment.OrderID, VerificationAmountMismatch, detail)
			return ConfirmResult{}, WrapError(operationConfirm, "verification", "amount", ErrAmountMismatch)
		}
	}

	if payment.Status == PaymentAuthorized {
		currency := payment.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		if _, captureErr := service.gateway.CapturePayment(ctx, paymentID, payment.Amount, currency); captureErr != nil {
			if !errors.Is(captureErr, ErrPaymentAlreadyCaptured) {
				service.appendAudit(ctx, paymentID.String(), payment.OrderID, VerificationGatewayError, captureErr.Error())
				return ConfirmResult{}, WrapError(operationConfirm, "gateway", "capture", fmt.Errorf("%w: %v", ErrGateway, captureErr))
			}
		}
	}

	info := confirmation{
		paymentID: paymentID,
		orderID:   payment.OrderID,
		amount:    payment.Amount,
		method:    payment.Method,
	}
	if tournamentID, idErr := NewTournamentID(request.TournamentID); idErr == nil {
		info.tournamentID = tournamentID
	} else if tournamentID, idErr := NewTournamentID(payment.Notes["tournament_id"]); idErr == nil {
		info.tournamentID = tournamentID
	}
	if playerID, idErr := NewPlayerID(request.PlayerID); idErr == nil {
		info.playerID = playerID
	} else if playerID, idErr := NewPlayerID(payment.Notes["player_id"]); idErr == nil {
		info.playerID = playerID
	}
	if seats, parseErr := strconv.ParseInt(payment.Notes["seats"], 10, 64); parseErr == nil {
		info.seats = seats
	}
	return service.commitConfirmation(ctx, info)
}

// commitConfirmation is the shared unpaid -> paid transition. It is guarded by
// the registration's current state inside a single store transaction, so a
// replayed webhook or a webhook racing the client callback increments the
// tournament aggregates exactly once.
func (service *Service) commitConfirmation(ctx context.Context, info confirmation) (ConfirmResult, error) {
	result := ConfirmResult{PaymentID: info.paymentID.String(), OrderID: info.orderID, Amount: info.amount}

	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		resolved, err := service.resolveRegistration(ctx, txStore, &info)
		if err != nil {
			return err
		}
		result.Seats = info.seats

		player, err := txStore.GetPlayer(ctx, info.tournamentID, info.playerID)
		if err != nil {
			return err
		}
		if player.State == PaymentStatePaid {
			result.AlreadyConfirmed = true
			return nil
		}

		nowUnixUTC := service.nowFn()
		if err := txStore.MarkPlayerPaid(ctx, info.tournamentID, info.playerID, PaidRecord{
			PaymentID:     info.paymentID,
			OrderID:       info.orderID,
			Amount:        info.amount,
			Seats:         info.seats,
			PaymentMethod: info.method,
			PaidAtUnixUTC: nowUnixUTC,
		}); err != nil {
			if errors.Is(err, ErrPlayerAlreadyPaid) {
				result.AlreadyConfirmed = true
				return nil
			}
			return err
		}

		split, err := SplitAmount(info.amount)
		if err != nil {
			return err
		}
		if err := txStore.ApplyTournamentDeltas(ctx, info.tournamentID, TournamentDeltas{
			TotalCollections: info.amount.Int64(),
			PaidPlayerCount:  info.seats,
			TotalHeldAmount:  split.OrganizerShare.Int64(),
		}); err != nil {
			return err
		}
		tournament, err := txStore.GetTournament(ctx, info.tournamentID)
		if err != nil {
			return err
		}
		if tournament.SettlementStatus == SettlementNone {
			if err := txStore.SetSettlementStatus(ctx, info.tournamentID, SettlementHeld); err != nil {
				return err
			}
		}
		return service.upsertSuccessTransaction(ctx, txStore, info, split, resolved, nowUnixUTC)
	})
	if operationError != nil {
		return result, operationError
	}

	if result.AlreadyConfirmed {
		service.appendAudit(ctx, info.paymentID.String(), info.orderID, VerificationReplay, "duplicate confirmation ignored")
	} else {
		service.appendAudit(ctx, info.paymentID.String(), info.orderID, VerificationVerified, "")
	}
	return result, nil
}

// resolveRegistration fills in tournament, player, and seats from the prior
// STARTED transaction when the event carried no usable notes.
func (service *Service) resolveRegistration(ctx context.Context, txStore Store, info *confirmation) (*Transaction, error) {
	var started *Transaction
	if info.orderID != "" {
		if orderID, err := NewOrderID(info.orderID); err == nil {
			if transaction, err := txStore.FindTransactionByOrder(ctx, orderID); err == nil {
				started = &transaction
			}
		}
	}
	if started == nil {
		if transaction, err := txStore.FindTransactionByPayment(ctx, info.paymentID); err == nil {
			started = &transaction
		}
	}
	if info.tournamentID == (TournamentID{}) {
		if started == nil {
			return nil, WrapError(operationConfirm, "registration", "resolve", ErrTransactionNotFound)
		}
		info.tournamentID = started.TournamentID
	}
	if info.playerID == (PlayerID{}) {
		if started == nil {
			return nil, WrapError(operationConfirm, "registration", "resolve", ErrTransactionNotFound)
		}
		info.playerID = started.PlayerID
	}
	if info.seats <= 0 {
		info.seats = 1
		if started != nil && started.Seats > 0 {
			info.seats = started.Seats
		}
	}
	return started, nil
}

func (service *Service) upsertSuccessTransaction(ctx context.Context, txStore Store, info confirmation, split Split, started *Transaction, nowUnixUTC int64) error {
	transaction := Transaction{
		Type:               TransactionCollection,
		Status:             TransactionSuccess,
		TournamentID:       info.tournamentID,
		PlayerID:           info.playerID,
		OrderID:            info.orderID,
		PaymentID:          info.paymentID.String(),
		Amount:             info.amount,
		OrganizerShare:     split.OrganizerShare,
		PlatformCommission: split.PlatformCommission,
		Seats:              info.seats,
		TransferStatus:     TransferOnHold,
		SettlementHeld:     true,
		HoldUntilUnixUTC:   nowUnixUTC + int64(TransferHoldDuration.Seconds()),
		CreatedUnixUTC:     nowUnixUTC,
		UpdatedUnixUTC:     nowUnixUTC,
	}
	if started != nil {
		transaction.ID = started.ID
		transaction.TransferID = started.TransferID
		transaction.HoldUntilUnixUTC = started.HoldUntilUnixUTC
		transaction.CreatedUnixUTC = started.CreatedUnixUTC
	} else {
		transactionID, err := NewTransactionID(info.paymentID.String())
		if err != nil {
			return err
		}
		transaction.ID = transactionID
	}
	return txStore.UpsertTransaction(ctx, transaction)
}

// recordPaymentFailure marks the associated transaction FAILED without
// touching the player or tournament.
func (service *Service) recordPaymentFailure(ctx context.Context, payment *WebhookPayment) (ConfirmResult, error) {
	if payment == nil {
		return ConfirmResult{}, WrapError(operationConfirm, "webhook", "parse", fmt.Errorf("%w: missing payment entity", ErrInvalidWebhookEvent))
	}
	paymentID, err := NewPaymentID(payment.ID)
	if err != nil {
		return ConfirmResult{}, err
	}
	result := ConfirmResult{PaymentID: payment.ID, OrderID: payment.OrderID}

	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var existing *Transaction
		if payment.OrderID != "" {
			if orderID, idErr := NewOrderID(payment.OrderID); idErr == nil {
				if transaction, findErr := txStore.FindTransactionByOrder(ctx, orderID); findErr == nil {
					existing = &transaction
				}
			}
		}
		if existing == nil {
			if transaction, findErr := txStore.FindTransactionByPayment(ctx, paymentID); findErr == nil {
				existing = &transaction
			}
		}
		nowUnixUTC := service.nowFn()
		transaction := Transaction{
			Type:           TransactionCollection,
			Status:         TransactionFailed,
			OrderID:        payment.OrderID,
			PaymentID:      payment.ID,
			FailureReason:  payment.ErrorDescription,
			CreatedUnixUTC: nowUnixUTC,
			UpdatedUnixUTC: nowUnixUTC,
		}
		if existing != nil {
			// A payment that already went through stays SUCCESS; failed
			// retries of the same order must not regress it.
			if existing.Status == TransactionSuccess {
				return nil
			}
			transaction = *existing
			transaction.Status = TransactionFailed
			transaction.PaymentID = payment.ID
			transaction.FailureReason = payment.ErrorDescription
			transaction.UpdatedUnixUTC = nowUnixUTC
		} else {
			transactionID, idErr := NewTransactionID(payment.ID)
			if idErr != nil {
				return idErr
			}
			transaction.ID = transactionID
		}
		return txStore.UpsertTransaction(ctx, transaction)
	})
	if operationError != nil {
		return result, operationError
	}
	service.appendAudit(ctx, payment.ID, payment.OrderID, VerificationFailed, payment.ErrorDescription)
	return result, nil
}

// recordTransferOutcome folds transfer.processed / transfer.failed events into
// the owning transaction's transfer status.
func (service *Service) recordTransferOutcome(ctx context.Context, transfer *WebhookTransfer, status TransferStatus) (ConfirmResult, error) {
	if transfer == nil {
		return ConfirmResult{}, WrapError(operationConfirm, "webhook", "parse", fmt.Errorf("%w: missing transfer entity", ErrInvalidWebhookEvent))
	}
	transaction, err := service.transferSourceTransaction(ctx, transfer.Source)
	if err != nil {
		return ConfirmResult{}, err
	}
	if err := service.store.SetTransferStatus(ctx, transaction.ID, status); err != nil {
		return ConfirmResult{}, err
	}
	return ConfirmResult{PaymentID: transaction.PaymentID, OrderID: transaction.OrderID}, nil
}

// transferSourceTransaction resolves a transfer webhook's source to the owning
// collection transaction. Transfers created inside an order report the order
// id as their source; direct transfers report the payment id.
func (service *Service) transferSourceTransaction(ctx context.Context, source string) (Transaction, error) {
	if paymentID, idErr := NewPaymentID(source); idErr == nil {
		if transaction, findErr := service.store.FindTransactionByPayment(ctx, paymentID); findErr == nil {
			return transaction, nil
		}
	}
	if orderID, idErr := NewOrderID(source); idErr == nil {
		if transaction, findErr := service.store.FindTransactionByOrder(ctx, orderID); findErr == nil {
			return transaction, nil
		}
	}
	return Transaction{}, WrapError(operationConfirm, "transfer", "source", ErrTransactionNotFound)
}

// expectedTransaction locates the prior transaction carrying the expected
// amount for a payment, preferring the order-keyed STARTED record.
func (service *Service) expectedTransaction(ctx context.Context, orderID string, paymentID PaymentID) (Transaction, bool) {
	if orderID != "" {
		if parsed, err := NewOrderID(orderID); err == nil {
			if transaction, err := service.store.FindTransactionByOrder(ctx, parsed); err == nil {
				return transaction, true
			}
		}
	}
	if transaction, err := service.store.FindTransactionByPayment(ctx, paymentID); err == nil {
		return transaction, true
	}
	return Transaction{}, false
}

// appendAudit writes one append-only verification log row. Audit failures are
// swallowed: forensics must never mask the primary outcome.
func (service *Service) appendAudit(ctx context.Context, paymentID string, orderID string, outcome VerificationOutcome, detail string) {
	_ = service.store.AppendVerificationLog(ctx, VerificationLog{
		PaymentID:      paymentID,
		OrderID:        orderID,
		Outcome:        outcome,
		Detail:         detail,
		CreatedUnixUTC: service.nowFn(),
	})
}
