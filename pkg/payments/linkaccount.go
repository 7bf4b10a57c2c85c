package payments

import "context"

// LinkRouteAccount attaches a gateway sub-account to an organizer, making the
// organizer eligible to receive payment splits.
func (service *Service) LinkRouteAccount(ctx context.Context, actor Actor, organizerID OrganizerID, account LinkedAccountID) error {
	operationError := service.linkRouteAccount(ctx, actor, organizerID, account)
	service.logOperation(ctx, OperationLog{
		Operation:       operationLinkAccount,
		OrganizerID:     organizerID.String(),
		LinkedAccountID: account.String(),
		Error:           operationError,
	})
	return operationError
}

func (service *Service) linkRouteAccount(ctx context.Context, actor Actor, organizerID OrganizerID, account LinkedAccountID) error {
	if !actor.IsOwnerOrAdmin() {
		return WrapError(operationLinkAccount, "actor", "role", ErrPermissionDenied)
	}
	if _, err := service.store.GetOrganizer(ctx, organizerID); err != nil {
		return err
	}
	return service.store.SetLinkedAccount(ctx, organizerID, account, LinkedAccountActive)
}
