package payments

import (
	"context"
	"fmt"
	"strconv"
)

// CreateOrderRequest initiates a checkout for one registration. The client
// amount is advisory only: the authoritative amount always comes from the
// tournament record.
type CreateOrderRequest struct {
	TournamentID       TournamentID
	PlayerID           PlayerID
	ClientAmountRupees float64
	PaidForPartner     bool
	Notes              map[string]string
}

// CreateOrderResult is returned to the client ahead of gateway checkout.
type CreateOrderResult struct {
	OrderID            string
	TransactionID      string
	Amount             Paise
	OrganizerShare     Paise
	PlatformCommission Paise
	Currency           string
}

// CreateOrder builds a gateway order whose organizer share is parked as an
// on-hold Route transfer until an operator releases the settlement.
func (service *Service) CreateOrder(ctx context.Context, request CreateOrderRequest) (CreateOrderResult, error) {
	result, operationError := service.createOrder(ctx, request)
	service.logOperation(ctx, OperationLog{
		Operation:    operationCreateOrder,
		TournamentID: request.TournamentID.String(),
		PlayerID:     request.PlayerID.String(),
		OrderID:      result.OrderID,
		Amount:       result.Amount,
		Error:        operationError,
	})
	return result, operationError
}

func (service *Service) createOrder(ctx context.Context, request CreateOrderRequest) (CreateOrderResult, error) {
	tournament, err := service.store.GetTournament(ctx, request.TournamentID)
	if err != nil {
		return CreateOrderResult{}, err
	}
	organizer, err := service.store.GetOrganizer(ctx, tournament.OrganizerID)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if !organizer.HasLinkedAccount() {
		return CreateOrderResult{}, WrapError(operationCreateOrder, "organizer", "missing_linked_account", ErrMissingLinkedAccount)
	}

	seats := int64(1)
	if request.PaidForPartner {
		seats = 2
	}
	perSeat, err := ComputeSplit(tournament.EntryFeeRupees)
	if err != nil {
		return CreateOrderResult{}, WrapError(operationCreateOrder, "tournament", "entry_fee", err)
	}
	split, err := SplitAmount(perSeat.Total * Paise(seats))
	if err != nil {
		return CreateOrderResult{}, WrapError(operationCreateOrder, "tournament", "entry_fee", err)
	}
	service.crossCheckClientAmount(ctx, request, split.Total)

	nowUnixUTC := service.nowFn()
	holdUntil := nowUnixUTC + int64(TransferHoldDuration.Seconds())
	notes := map[string]string{
		"tournament_id": request.TournamentID.String(),
		"player_id":     request.PlayerID.String(),
		"seats":         strconv.FormatInt(seats, 10),
	}
	for key, value := range request.Notes {
		if _, reserved := notes[key]; !reserved {
			notes[key] = value
		}
	}

	order, err := service.gateway.CreateOrder(ctx, OrderRequest{
		Amount:   split.Total,
		Currency: defaultCurrency,
		Receipt:  fmt.Sprintf("%s-%s", request.TournamentID.String(), request.PlayerID.String()),
		Notes:    notes,
		Transfer: TransferInstruction{
			Account:            organizer.LinkedAccountID,
			Amount:             split.OrganizerShare,
			OnHold:             true,
			OnHoldUntilUnixUTC: holdUntil,
		},
	})
	if err != nil {
		return CreateOrderResult{}, WrapError(operationCreateOrder, "gateway", "create_order", fmt.Errorf("%w: %v", ErrGateway, err))
	}

	transactionID, err := NewTransactionID(service.newID())
	if err != nil {
		return CreateOrderResult{}, err
	}
	transferID := ""
	if len(order.TransferIDs) > 0 {
		transferID = order.TransferIDs[0]
	}
	transaction := Transaction{
		ID:                 transactionID,
		Type:               TransactionCollection,
		Status:             TransactionStarted,
		TournamentID:       request.TournamentID,
		PlayerID:           request.PlayerID,
		OrderID:            order.ID,
		Amount:             split.Total,
		OrganizerShare:     split.OrganizerShare,
		PlatformCommission: split.PlatformCommission,
		Seats:              seats,
		TransferID:         transferID,
		TransferStatus:     TransferOnHold,
		HoldUntilUnixUTC:   holdUntil,
		CreatedUnixUTC:     nowUnixUTC,
		UpdatedUnixUTC:     nowUnixUTC,
	}
	if err := service.store.UpsertTransaction(ctx, transaction); err != nil {
		return CreateOrderResult{}, err
	}

	return CreateOrderResult{
		OrderID:            order.ID,
		TransactionID:      transactionID.String(),
		Amount:             split.Total,
		OrganizerShare:     split.OrganizerShare,
		PlatformCommission: split.PlatformCommission,
		Currency:           defaultCurrency,
	}, nil
}

// crossCheckClientAmount compares the advisory client amount against the
// authoritative one and logs a disagreement beyond the rounding tolerance.
// The authoritative amount is used either way.
func (service *Service) crossCheckClientAmount(ctx context.Context, request CreateOrderRequest, authoritative Paise) {
	if request.ClientAmountRupees <= 0 {
		return
	}
	clientPaise, err := RupeesToPaise(request.ClientAmountRupees)
	if err != nil {
		return
	}
	difference := clientPaise.Int64() - authoritative.Int64()
	if difference < 0 {
		difference = -difference
	}
	if difference > AmountTolerancePaise {
		service.logOperation(ctx, OperationLog{
			Operation:    operationCreateOrder,
			TournamentID: request.TournamentID.String(),
			PlayerID:     request.PlayerID.String(),
			Amount:       clientPaise,
			Status:       "client_amount_disagreement",
		})
	}
}
