package payments

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the payments service.
var (
	ErrInvalidTournamentID     = errors.New("invalid tournament id")
	ErrInvalidOrganizerID      = errors.New("invalid organizer id")
	ErrInvalidPlayerID         = errors.New("invalid player id")
	ErrInvalidPaymentID        = errors.New("invalid payment id")
	ErrInvalidOrderID          = errors.New("invalid order id")
	ErrInvalidTransferID       = errors.New("invalid transfer id")
	ErrInvalidTransactionID    = errors.New("invalid transaction id")
	ErrInvalidLinkedAccountID  = errors.New("invalid linked account id")
	ErrInvalidPaise            = errors.New("invalid paise amount")
	ErrInvalidPercentage       = errors.New("invalid percentage")
	ErrInvalidEntryFee         = errors.New("invalid entry fee")
	ErrInvalidSettlementStatus = errors.New("invalid settlement status")
	ErrInvalidPaymentState     = errors.New("invalid payment state")
	ErrInvalidWebhookEvent     = errors.New("invalid webhook event")
	ErrInvalidServiceConfig    = errors.New("invalid service config")

	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrOrganizerNotFound   = errors.New("organizer not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrMissingLinkedAccount   = errors.New("organizer has no linked payout account")
	ErrSignatureMismatch      = errors.New("signature mismatch")
	ErrAmountMismatch         = errors.New("amount mismatch")
	ErrDuplicateVerification  = errors.New("payment already verified")
	ErrPlayerAlreadyPaid      = errors.New("player already paid")
	ErrPlayerNotPaid          = errors.New("player has not paid")
	ErrNoPaymentOnRecord      = errors.New("no payment id on record")
	ErrAlreadyRefunded        = errors.New("player already refunded")
	ErrSettlementReleased     = errors.New("settlement already released")
	ErrNoHeldTransfers        = errors.New("no held transfers")
	ErrPaymentNotCapturable   = errors.New("payment not in a capturable status")
	ErrPaymentAlreadyCaptured = errors.New("payment already captured")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrGateway                = errors.New("gateway failure")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
