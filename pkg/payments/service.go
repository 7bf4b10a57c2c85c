package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service contains the payment-split and settlement domain logic over a Store
// and a Gateway. All durable state lives behind the Store; the Service itself
// holds no mutable state and is safe for concurrent use.
type Service struct {
	store    Store
	gateway  Gateway
	verifier SignatureVerifier
	nowFn    func() int64
	newID    func() string
	logger   OperationLogger
}

// NewService wires a Service.
func NewService(store Store, gateway Gateway, verifier SignatureVerifier, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if gateway == nil {
		return nil, fmt.Errorf("%w: gateway dependency is nil", ErrInvalidServiceConfig)
	}
	if verifier == nil {
		return nil, fmt.Errorf("%w: signature verifier dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:    store,
		gateway:  gateway,
		verifier: verifier,
		nowFn:    now,
		newID:    uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
