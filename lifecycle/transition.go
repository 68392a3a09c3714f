package lifecycle

import (
	"errors"
	"fmt"

	"lavka/models"
)

// Action - действие над заказом. Значения совпадают с API веб-интерфейса
// и с callback-данными бота, чтобы оба входа шли через одну таблицу переходов.
type Action string

const (
	ActionAgree           Action = "agree"
	ActionReject          Action = "reject"
	ActionClientWent      Action = "client_went"
	ActionClientNotWent   Action = "client_not_went"
	ActionProductGiven    Action = "product_given"
	ActionProductNotGiven Action = "product_not_given"
	ActionAdminOverride   Action = "admin_override"
)

// Params - аргументы перехода
type Params struct {
	PickupAddress string // Для agree
	Notes         string
	ForceStatus   string // Для admin_override: processing | completed | cancelled
	// Для admin_override: приводить ли флаги к ближайшей корректной комбинации.
	// По умолчанию false - флаги остаются как есть (историческое поведение).
	ReconcileFlags bool
}

var (
	ErrInvalidTransition = errors.New("действие недоступно на текущем этапе заказа")
	ErrOrderCancelled    = errors.New("заказ отменен, изменения невозможны")
	ErrUnknownAction     = errors.New("неизвестное действие")
	ErrBadOverrideStatus = errors.New("недопустимый статус для принудительной смены")
)

func boolPtr(b bool) *bool { return &b }

// Apply - чистая функция переходов: (состояние, действие) -> новое состояние.
// Никогда не мутирует вход. Попытка перехода с этапа, где его предусловие
// не выполнено, отклоняется (в том числе повторный вызов уже сработавшего
// действия - это отказ, а не идемпотентный успех).
func Apply(s State, action Action, p Params) (State, error) {
	stage := StageOf(s)

	// Отмена терминальна для всего, кроме админского вмешательства
	if stage == StageCancelled && action != ActionAdminOverride {
		return s, ErrOrderCancelled
	}

	switch action {
	case ActionAgree:
		if stage != StageAwaitingSellerDecision {
			return s, ErrInvalidTransition
		}
		s.IsAgree = boolPtr(true)
		return s, nil

	case ActionReject:
		if stage != StageAwaitingSellerDecision {
			return s, ErrInvalidTransition
		}
		s.IsAgree = boolPtr(false)
		s.Status = models.OrderStatusCancelled
		return s, nil

	case ActionClientWent:
		if stage != StageAwaitingPickup || s.IsClientWent != nil {
			return s, ErrInvalidTransition
		}
		s.IsClientWent = boolPtr(true)
		return s, nil

	case ActionClientNotWent:
		if stage != StageAwaitingPickup || s.IsClientWent != nil {
			return s, ErrInvalidTransition
		}
		// Заказ не отменяется: продавец разбирается с неявкой вручную
		s.IsClientWent = boolPtr(false)
		return s, nil

	case ActionProductGiven:
		if stage != StageAwaitingHandover {
			return s, ErrInvalidTransition
		}
		s.IsClientClaimed = boolPtr(true)
		s.Status = models.OrderStatusCompleted
		return s, nil

	case ActionProductNotGiven:
		if stage != StageAwaitingHandover {
			return s, ErrInvalidTransition
		}
		s.IsClientClaimed = boolPtr(false)
		s.Status = models.OrderStatusCancelled
		return s, nil

	case ActionAdminOverride:
		switch p.ForceStatus {
		case models.OrderStatusProcessing, models.OrderStatusCompleted, models.OrderStatusCancelled:
		default:
			return s, fmt.Errorf("%w: %q", ErrBadOverrideStatus, p.ForceStatus)
		}
		s.Status = p.ForceStatus
		if p.ReconcileFlags {
			s = reconcile(s)
		}
		return s, nil

	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// reconcile приводит флаги к ближайшей комбинации, согласованной со статусом.
// Для cancelled флаги не трогаем - отмена корректна на любом этапе.
func reconcile(s State) State {
	switch s.Status {
	case models.OrderStatusCompleted:
		s.IsAgree = boolPtr(true)
		s.IsClientWent = boolPtr(true)
		s.IsClientClaimed = boolPtr(true)
	case models.OrderStatusProcessing:
		s.IsAgree = boolPtr(true)
	}
	return s
}

// ApplyToOrder применяет результат перехода к заказу
func ApplyToOrder(order *models.Order, s State) {
	order.Status = s.Status
	order.IsAgree = s.IsAgree
	order.IsClientWent = s.IsClientWent
	order.IsClientClaimed = s.IsClientClaimed
}
