package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

const (
	kindInvalidArgument    = "invalid-argument"
	kindUnauthenticated    = "unauthenticated"
	kindPermissionDenied   = "permission-denied"
	kindNotFound           = "not-found"
	kindAlreadyExists      = "already-exists"
	kindFailedPrecondition = "failed-precondition"
	kindInternal           = "internal"
)

var invalidArgumentErrors = []error{
	payments.ErrInvalidTournamentID,
	payments.ErrInvalidOrganizerID,
	payments.ErrInvalidPlayerID,
	payments.ErrInvalidPaymentID,
	payments.ErrInvalidOrderID,
	payments.ErrInvalidTransferID,
	payments.ErrInvalidTransactionID,
	payments.ErrInvalidLinkedAccountID,
	payments.ErrInvalidPaise,
	payments.ErrInvalidPercentage,
	payments.ErrInvalidWebhookEvent,
	payments.ErrAmountMismatch,
}

var notFoundErrors = []error{
	payments.ErrTournamentNotFound,
	payments.ErrOrganizerNotFound,
	payments.ErrPlayerNotFound,
	payments.ErrTransactionNotFound,
	payments.ErrNoHeldTransfers,
}

var alreadyExistsErrors = []error{
	payments.ErrDuplicateVerification,
	payments.ErrPlayerAlreadyPaid,
	payments.ErrAlreadyRefunded,
	payments.ErrSettlementReleased,
}

var failedPreconditionErrors = []error{
	payments.ErrMissingLinkedAccount,
	payments.ErrInvalidEntryFee,
	payments.ErrPlayerNotPaid,
	payments.ErrNoPaymentOnRecord,
	payments.ErrPaymentNotCapturable,
}

// classifyError maps a domain error onto an HTTP status and a stable error
// kind. Internal failures keep their detail out of the response body.
func classifyError(err error) (int, string, string) {
	switch {
	case matchesAny(err, invalidArgumentErrors):
		return http.StatusBadRequest, kindInvalidArgument, err.Error()
	case errors.Is(err, payments.ErrSignatureMismatch):
		return http.StatusForbidden, kindPermissionDenied, payments.ErrSignatureMismatch.Error()
	case errors.Is(err, payments.ErrPermissionDenied):
		return http.StatusForbidden, kindPermissionDenied, payments.ErrPermissionDenied.Error()
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound, kindNotFound, err.Error()
	case matchesAny(err, alreadyExistsErrors):
		return http.StatusConflict, kindAlreadyExists, err.Error()
	case matchesAny(err, failedPreconditionErrors):
		return http.StatusPreconditionFailed, kindFailedPrecondition, err.Error()
	case errors.Is(err, payments.ErrGateway):
		return http.StatusBadGateway, kindInternal, "payment gateway unavailable"
	}
	return http.StatusInternalServerError, kindInternal, "internal error"
}

func matchesAny(err error, candidates []error) bool {
	for _, candidate := range candidates {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func respondError(ctx *gin.Context, err error) {
	status, kind, message := classifyError(err)
	ctx.JSON(status, errorResponse(kind, message))
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
