package razorpay

import (
	"github.com/razorpay/razorpay-go/utils"

	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

// Verifier implements payments.SignatureVerifier using the SDK's HMAC helpers.
type Verifier struct {
	keySecret     string
	webhookSecret string
}

// NewVerifier builds a signature verifier from the gateway credentials. The
// webhook secret is configured separately on the Razorpay dashboard and
// differs from the API key secret that signs checkout callbacks.
func NewVerifier(config Config) *Verifier {
	return &Verifier{
		keySecret:     config.KeySecret,
		webhookSecret: config.WebhookSecret,
	}
}

func (verifier *Verifier) VerifyWebhook(body []byte, signature string) bool {
	if verifier.webhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, verifier.webhookSecret)
}

func (verifier *Verifier) VerifyPayment(orderID payments.OrderID, paymentID payments.PaymentID, signature string) bool {
	if verifier.keySecret == "" || signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID.String(),
		"razorpay_payment_id": paymentID.String(),
	}, signature, verifier.keySecret)
}
