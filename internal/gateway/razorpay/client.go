// Package razorpay adapts the Razorpay Go SDK to the payments.Gateway
// contract: typed requests in, typed entities out, Route transfers included.
package razorpay

import (
	"context"
	"fmt"
	"strings"

	razorpaysdk "github.com/razorpay/razorpay-go"

	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

// Config carries the API credentials.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Validate reports whether the credentials are usable.
func (config Config) Validate() error {
	if strings.TrimSpace(config.KeyID) == "" {
		return fmt.Errorf("razorpay: key id is required")
	}
	if strings.TrimSpace(config.KeySecret) == "" {
		return fmt.Errorf("razorpay: key secret is required")
	}
	return nil
}

// Client implements payments.Gateway over the Razorpay REST API.
type Client struct {
	api *razorpaysdk.Client
}

// NewClient builds a gateway client from credentials.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{api: razorpaysdk.NewClient(config.KeyID, config.KeySecret)}, nil
}

func (client *Client) CreateOrder(ctx context.Context, request payments.OrderRequest) (payments.Order, error) {
	transfer := map[string]interface{}{
		"account":  request.Transfer.Account,
		"amount":   request.Transfer.Amount.Int64(),
		"currency": request.Currency,
		"on_hold":  request.Transfer.OnHold,
	}
	if request.Transfer.OnHold && request.Transfer.OnHoldUntilUnixUTC > 0 {
		transfer["on_hold_until"] = request.Transfer.OnHoldUntilUnixUTC
	}
	data := map[string]interface{}{
		"amount":    request.Amount.Int64(),
		"currency":  request.Currency,
		"receipt":   request.Receipt,
		"transfers": []interface{}{transfer},
	}
	if len(request.Notes) > 0 {
		data["notes"] = notesPayload(request.Notes)
	}
	response, err := client.api.Order.Create(data, nil)
	if err != nil {
		return payments.Order{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	return orderFromMap(response), nil
}

func (client *Client) FetchPayment(ctx context.Context, paymentID payments.PaymentID) (payments.GatewayPayment, error) {
	response, err := client.api.Payment.Fetch(paymentID.String(), nil, nil)
	if err != nil {
		return payments.GatewayPayment{}, fmt.Errorf("razorpay: fetch payment %s: %w", paymentID.String(), err)
	}
	return paymentFromMap(response), nil
}

func (client *Client) CapturePayment(ctx context.Context, paymentID payments.PaymentID, amount payments.Paise, currency string) (payments.GatewayPayment, error) {
	response, err := client.api.Payment.Capture(paymentID.String(), int(amount.Int64()), map[string]interface{}{
		"currency": currency,
	}, nil)
	if err != nil {
		if isAlreadyCaptured(err) {
			return payments.GatewayPayment{}, payments.ErrPaymentAlreadyCaptured
		}
		return payments.GatewayPayment{}, fmt.Errorf("razorpay: capture payment %s: %w", paymentID.String(), err)
	}
	return paymentFromMap(response), nil
}

func (client *Client) FetchTransfersByOrder(ctx context.Context, orderID payments.OrderID) ([]payments.Transfer, error) {
	response, err := client.api.Transfer.All(map[string]interface{}{
		"order_id": orderID.String(),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: fetch transfers for order %s: %w", orderID.String(), err)
	}
	return transfersFromCollection(response), nil
}

func (client *Client) FetchTransfer(ctx context.Context, transferID payments.TransferID) (payments.Transfer, error) {
	response, err := client.api.Transfer.Fetch(transferID.String(), nil, nil)
	if err != nil {
		return payments.Transfer{}, fmt.Errorf("razorpay: fetch transfer %s: %w", transferID.String(), err)
	}
	return transferFromMap(response), nil
}

func (client *Client) ReleaseTransfer(ctx context.Context, transferID payments.TransferID) (payments.Transfer, error) {
	response, err := client.api.Transfer.Edit(transferID.String(), map[string]interface{}{
		"on_hold": false,
	}, nil)
	if err != nil {
		return payments.Transfer{}, fmt.Errorf("razorpay: release transfer %s: %w", transferID.String(), err)
	}
	return transferFromMap(response), nil
}

func (client *Client) CreateRefund(ctx context.Context, paymentID payments.PaymentID, request payments.RefundRequest) (payments.GatewayRefund, error) {
	data := map[string]interface{}{}
	if request.Speed != "" {
		data["speed"] = request.Speed
	}
	if len(request.Notes) > 0 {
		data["notes"] = notesPayload(request.Notes)
	}
	response, err := client.api.Payment.Refund(paymentID.String(), int(request.Amount.Int64()), data, nil)
	if err != nil {
		return payments.GatewayRefund{}, fmt.Errorf("razorpay: refund payment %s: %w", paymentID.String(), err)
	}
	return payments.GatewayRefund{
		ID:     stringField(response, "id"),
		Amount: payments.Paise(intField(response, "amount")),
		Status: stringField(response, "status"),
	}, nil
}

// isAlreadyCaptured recognizes the BAD_REQUEST_ERROR Razorpay returns when a
// capture races a capture that already went through.
func isAlreadyCaptured(err error) bool {
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "already") && strings.Contains(message, "captured")
}

func notesPayload(notes map[string]string) map[string]interface{} {
	payload := make(map[string]interface{}, len(notes))
	for key, value := range notes {
		payload[key] = value
	}
	return payload
}

func orderFromMap(response map[string]interface{}) payments.Order {
	order := payments.Order{
		ID:       stringField(response, "id"),
		Amount:   payments.Paise(intField(response, "amount")),
		Currency: stringField(response, "currency"),
		Status:   stringField(response, "status"),
	}
	if items, ok := response["transfers"].([]interface{}); ok {
		for _, item := range items {
			if entity, ok := item.(map[string]interface{}); ok {
				order.TransferIDs = append(order.TransferIDs, stringField(entity, "id"))
			}
		}
	}
	return order
}

func paymentFromMap(response map[string]interface{}) payments.GatewayPayment {
	payment := payments.GatewayPayment{
		ID:       stringField(response, "id"),
		OrderID:  stringField(response, "order_id"),
		Amount:   payments.Paise(intField(response, "amount")),
		Currency: stringField(response, "currency"),
		Status:   payments.PaymentStatus(stringField(response, "status")),
		Method:   stringField(response, "method"),
	}
	if notes, ok := response["notes"].(map[string]interface{}); ok {
		payment.Notes = make(map[string]string, len(notes))
		for key, value := range notes {
			if text, ok := value.(string); ok {
				payment.Notes[key] = text
			}
		}
	}
	return payment
}

func transferFromMap(response map[string]interface{}) payments.Transfer {
	return payments.Transfer{
		ID:       stringField(response, "id"),
		SourceID: stringField(response, "source"),
		Amount:   payments.Paise(intField(response, "amount")),
		OnHold:   boolField(response, "on_hold"),
		Status:   stringField(response, "status"),
	}
}

func transfersFromCollection(response map[string]interface{}) []payments.Transfer {
	items, ok := response["items"].([]interface{})
	if !ok {
		return nil
	}
	transfers := make([]payments.Transfer, 0, len(items))
	for _, item := range items {
		entity, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		transfers = append(transfers, transferFromMap(entity))
	}
	return transfers
}

func stringField(response map[string]interface{}, key string) string {
	value, _ := response[key].(string)
	return value
}

func intField(response map[string]interface{}, key string) int64 {
	switch value := response[key].(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	}
	return 0
}

func boolField(response map[string]interface{}, key string) bool {
	value, _ := response[key].(bool)
	return value
}
