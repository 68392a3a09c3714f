// Package lifecycle содержит чистую машину состояний заказа:
// вычисление этапа из флагов и табличную функцию переходов.
// Пакет не делает I/O - его вызывают и REST-контроллеры, и телеграм-бот.
package lifecycle

import "lavka/models"

// Stage - явный этап сделки, выводимый из трех nullable-флагов и статуса.
type Stage int

const (
	StageCancelled              Stage = 0 // Терминальный: отказ продавца, срыв передачи или явная отмена
	StageAwaitingSellerDecision Stage = 1
	StageAwaitingPickup         Stage = 2
	StageAwaitingHandover       Stage = 3
	StageCompleted              Stage = 4
)

// State - срез заказа, от которого зависят переходы.
type State struct {
	Status          string
	IsAgree         *bool
	IsClientWent    *bool
	IsClientClaimed *bool
}

// StateOf выделяет из заказа поля, участвующие в переходах
func StateOf(order *models.Order) State {
	return State{
		Status:          order.Status,
		IsAgree:         order.IsAgree,
		IsClientWent:    order.IsClientWent,
		IsClientClaimed: order.IsClientClaimed,
	}
}

// StageOf вычисляет текущий этап. Статус имеет приоритет над флагами:
// заказ, отмененный или завершенный админом напрямую, попадает в
// терминальный этап независимо от состояния флагов.
func StageOf(s State) Stage {
	switch s.Status {
	case models.OrderStatusCancelled:
		return StageCancelled
	case models.OrderStatusCompleted:
		return StageCompleted
	}

	switch {
	case s.IsAgree == nil:
		return StageAwaitingSellerDecision
	case !*s.IsAgree:
		// IsAgree=false без статуса cancelled - рассинхрон, трактуем как отмену
		return StageCancelled
	case s.IsClientWent == nil || !*s.IsClientWent:
		// "не пришел" не отменяет заказ: остаемся на этапе 2 с негативным флагом
		return StageAwaitingPickup
	case s.IsClientClaimed == nil:
		return StageAwaitingHandover
	case *s.IsClientClaimed:
		return StageCompleted
	default:
		return StageCancelled
	}
}

// Progress - процент выполнения: этап/4 * 100.
// Отмененный заказ всегда 0%, сколько бы этапов он ни прошел.
func Progress(s State) int {
	stage := StageOf(s)
	if stage == StageCancelled {
		return 0
	}
	return int(stage) * 100 / 4
}

// Label - человекочитаемое название этапа
func Label(stage Stage) string {
	switch stage {
	case StageCancelled:
		return "Заказ отменен"
	case StageAwaitingSellerDecision:
		return "Ожидает подтверждения продавца"
	case StageAwaitingPickup:
		return "Подтвержден, ожидает покупателя"
	case StageAwaitingHandover:
		return "Покупатель на месте, ожидает передачи"
	case StageCompleted:
		return "Завершен"
	default:
		return "Неизвестный этап"
	}
}
