package services

import (
	"fmt"

	"github.com/cbw-coffee/api/internal/domain"
)

// fulfilmentFlow is the linear path an order follows when nothing goes wrong.
var fulfilmentFlow = []domain.OrderStatus{
	domain.OrderStatusPendingConfirmation,
	domain.OrderStatusConfirmed,
	domain.OrderStatusPreparing,
	domain.OrderStatusOutForDelivery,
	domain.OrderStatusDelivered,
}

// customerCancellable lists the states a customer may still cancel from.
var customerCancellable = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPendingConfirmation: {},
	domain.OrderStatusConfirmed:           {},
}

func flowIndex(status domain.OrderStatus) int {
	for i, s := range fulfilmentFlow {
		if s == status {
			return i
		}
	}
	return -1
}

// checkTransition validates current → target for the given actor role. Admins may skip ahead in
// the fulfilment flow; everyone may exit to CANCELLED or REFUNDED from a non-terminal state.
func checkTransition(current, target domain.OrderStatus, role domain.ActorRole) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, target)
	}
	if current.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrOrderInvalidTransition, current)
	}
	if current == target {
		return fmt.Errorf("%w: order is already %s", ErrOrderInvalidTransition, current)
	}
	if target.RestoresStock() {
		if role == domain.ActorRoleCustomer && target != domain.OrderStatusCancelled {
			return fmt.Errorf("%w: customers cannot request %s", ErrOrderInvalidTransition, target)
		}
		return nil
	}
	if role == domain.ActorRoleCustomer {
		return fmt.Errorf("%w: customers cannot request %s", ErrOrderInvalidTransition, target)
	}
	from, to := flowIndex(current), flowIndex(target)
	if from < 0 || to <= from {
		return fmt.Errorf("%w: %s → %s", ErrOrderInvalidTransition, current, target)
	}
	return nil
}

func canCustomerCancel(status domain.OrderStatus) bool {
	_, ok := customerCancellable[status]
	return ok
}

func defaultTransitionNote(from, to domain.OrderStatus) string {
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}
