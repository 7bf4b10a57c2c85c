package payments

import "time"

const (
	operationCreateOrder = "create_order"
	operationConfirm     = "confirm"
	operationRelease     = "release_settlement"
	operationRefund      = "refund"
	operationLinkAccount = "link_account"
	operationReconcile   = "reconcile"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	// CommissionBasisPoints is the fixed platform cut: 5% of the gross amount.
	CommissionBasisPoints = 500

	// TransferHoldDuration is the gateway-enforced maximum hold window. The
	// gateway may auto-release a transfer once it elapses, which the
	// reconciliation sweep folds back into the ledger.
	TransferHoldDuration = 30 * 24 * time.Hour

	// AmountTolerancePaise is the rounding tolerance applied when comparing a
	// gateway-reported amount against the expected one.
	AmountTolerancePaise = 1

	defaultCurrency    = "INR"
	defaultRefundSpeed = "normal"
)
