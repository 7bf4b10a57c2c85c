package payments

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Webhook event names delivered by the gateway.
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
	EventOrderPaid         = "order.paid"
	EventTransferProcessed = "transfer.processed"
	EventTransferFailed    = "transfer.failed"
)

// WebhookPayment is the payment entity embedded in a webhook payload.
type WebhookPayment struct {
	ID               string         `json:"id"`
	OrderID          string         `json:"order_id"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
	Status           string         `json:"status"`
	Method           string         `json:"method"`
	ErrorDescription string         `json:"error_description"`
	Notes            map[string]any `json:"notes"`
}

// WebhookTransfer is the transfer entity embedded in a webhook payload.
type WebhookTransfer struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Amount    int64  `json:"amount"`
	OnHold    bool   `json:"on_hold"`
	Recipient string `json:"recipient"`
}

// WebhookEvent is the decoded gateway notification.
type WebhookEvent struct {
	Kind     string
	Payment  *WebhookPayment
	Transfer *WebhookTransfer
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity *WebhookPayment `json:"entity"`
		} `json:"payment"`
		Transfer struct {
			Entity *WebhookTransfer `json:"entity"`
		} `json:"transfer"`
	} `json:"payload"`
}

// ParseWebhookEvent decodes a raw webhook body. Signature verification is a
// separate step over the same raw bytes.
func ParseWebhookEvent(raw []byte) (WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidWebhookEvent, err)
	}
	if envelope.Event == "" {
		return WebhookEvent{}, fmt.Errorf("%w: missing event name", ErrInvalidWebhookEvent)
	}
	return WebhookEvent{
		Kind:     envelope.Event,
		Payment:  envelope.Payload.Payment.Entity,
		Transfer: envelope.Payload.Transfer.Entity,
	}, nil
}

// NoteString extracts a string note, tolerating numeric note values.
func (payment *WebhookPayment) NoteString(key string) string {
	if payment == nil || payment.Notes == nil {
		return ""
	}
	switch value := payment.Notes[key].(type) {
	case string:
		return value
	case float64:
		return strconv.FormatInt(int64(value), 10)
	case bool:
		return strconv.FormatBool(value)
	}
	return ""
}

// NoteInt extracts an integer note, defaulting when absent or malformed.
func (payment *WebhookPayment) NoteInt(key string, fallback int64) int64 {
	raw := payment.NoteString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
