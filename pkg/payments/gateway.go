package payments

import "context"

// PaymentStatus mirrors the gateway-side payment lifecycle.
type PaymentStatus string

const (
	PaymentCreated    PaymentStatus = "created"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentFailed     PaymentStatus = "failed"
)

// String returns the wire representation.
func (status PaymentStatus) String() string {
	return string(status)
}

// TransferInstruction is a split instruction attached to a gateway order.
type TransferInstruction struct {
	Account            string
	Amount             Paise
	OnHold             bool
	OnHoldUntilUnixUTC int64
}

// OrderRequest describes a gateway order with one on-hold Route transfer.
type OrderRequest struct {
	Amount   Paise
	Currency string
	Receipt  string
	Notes    map[string]string
	Transfer TransferInstruction
}

// Order is the gateway's view of a created order.
type Order struct {
	ID          string
	Amount      Paise
	Currency    string
	Status      string
	TransferIDs []string
}

// GatewayPayment is the gateway's authoritative view of a payment. The
// confirmation engine never trusts client-supplied amounts or statuses.
type GatewayPayment struct {
	ID       string
	OrderID  string
	Amount   Paise
	Currency string
	Status   PaymentStatus
	Method   string
	Notes    map[string]string
}

// Transfer is the gateway's view of a split transfer.
type Transfer struct {
	ID       string
	SourceID string
	Amount   Paise
	OnHold   bool
	Status   string
}

// RefundRequest describes a partial refund scoped to a captured payment.
type RefundRequest struct {
	Amount Paise
	Speed  string
	Notes  map[string]string
}

// GatewayRefund is the gateway's view of an issued refund.
type GatewayRefund struct {
	ID     string
	Amount Paise
	Status string
}

// Gateway wraps the external payment processor. Every call is stateless and
// independently retryable.
type Gateway interface {
	CreateOrder(ctx context.Context, request OrderRequest) (Order, error)
	FetchPayment(ctx context.Context, paymentID PaymentID) (GatewayPayment, error)
	// CapturePayment moves an authorized payment to captured. Implementations
	// return ErrPaymentAlreadyCaptured when the gateway reports a concurrent
	// capture, which callers treat as success.
	CapturePayment(ctx context.Context, paymentID PaymentID, amount Paise, currency string) (GatewayPayment, error)
	FetchTransfersByOrder(ctx context.Context, orderID OrderID) ([]Transfer, error)
	FetchTransfer(ctx context.Context, transferID TransferID) (Transfer, error)
	// ReleaseTransfer clears the on-hold flag, moving the held share toward the
	// organizer's sub-account.
	ReleaseTransfer(ctx context.Context, transferID TransferID) (Transfer, error)
	CreateRefund(ctx context.Context, paymentID PaymentID, request RefundRequest) (GatewayRefund, error)
}

// SignatureVerifier validates gateway-signed payloads.
type SignatureVerifier interface {
	// VerifyWebhook checks the HMAC-SHA256 signature over the raw webhook body.
	VerifyWebhook(body []byte, signature string) bool
	// VerifyPayment checks the checkout signature over "order_id|payment_id".
	VerifyPayment(orderID OrderID, paymentID PaymentID, signature string) bool
}
