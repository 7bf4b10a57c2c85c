// Package logging adapts zap to the payments operation log hook.
package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

// OperationLogger emits one structured log line per payments operation.
type OperationLogger struct {
	logger *zap.Logger
}

// NewOperationLogger wraps a zap logger. A nil logger yields a no-op.
func NewOperationLogger(logger *zap.Logger) *OperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationLogger{logger: logger}
}

// LogOperation implements payments.OperationLogger.
func (operationLogger *OperationLogger) LogOperation(_ context.Context, entry payments.OperationLog) {
	fields := make([]zap.Field, 0, 8)
	fields = append(fields, zap.String("operation", entry.Operation))
	if entry.TournamentID != "" {
		fields = append(fields, zap.String("tournament_id", entry.TournamentID))
	}
	if entry.PlayerID != "" {
		fields = append(fields, zap.String("player_id", entry.PlayerID))
	}
	if entry.OrganizerID != "" {
		fields = append(fields, zap.String("organizer_id", entry.OrganizerID))
	}
	if entry.LinkedAccountID != "" {
		fields = append(fields, zap.String("linked_account_id", entry.LinkedAccountID))
	}
	if entry.PaymentID != "" {
		fields = append(fields, zap.String("payment_id", entry.PaymentID))
	}
	if entry.OrderID != "" {
		fields = append(fields, zap.String("order_id", entry.OrderID))
	}
	if entry.Amount != 0 {
		fields = append(fields, zap.Int64("amount_paise", entry.Amount.Int64()))
	}
	if entry.Status != "" {
		fields = append(fields, zap.String("status", entry.Status))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("payments operation failed", fields...)
		return
	}
	operationLogger.logger.Info("payments operation", fields...)
}
