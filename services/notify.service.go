package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"

	"lavka/lifecycle"
	"lavka/models"
)

// Button - кнопка под сообщением; Data уходит в callback бота
type Button struct {
	Text string
	Data string
}

// Dispatcher отправляет сообщение в конкретный чат.
// Реализация - телеграм-бот; в тестах - заглушка.
type Dispatcher interface {
	SendMessage(chatID int64, text string, buttons [][]Button) error
}

// SendOutcome - результат отправки одному получателю при веерной рассылке
type SendOutcome struct {
	ChatID int64
	Err    error
}

// Notifier доставляет контрагенту сообщение о каждом переходе жизненного цикла.
// Вся доставка best-effort: ошибка логируется и никогда не откатывает переход.
type Notifier struct {
	Dispatch   Dispatcher
	Store      Store
	AdminChats []int64
}

// CallbackData собирает callback для кнопок действий над заказом
func CallbackData(orderID uuid.UUID, action lifecycle.Action) string {
	return fmt.Sprintf("ord:%s:%s", orderID, action)
}

// BuyerChat находит чат покупателя: по токену анонимной сессии "tg:<chat_id>"
// либо по привязанному чату аккаунта.
func (n *Notifier) BuyerChat(ctx context.Context, order *models.Order) int64 {
	if strings.HasPrefix(order.TgSession, "tg:") {
		id, err := strconv.ParseInt(strings.TrimPrefix(order.TgSession, "tg:"), 10, 64)
		if err == nil && id != 0 {
			return id
		}
	}
	return n.Store.UserChat(ctx, order.UserID)
}

func (n *Notifier) SellerChat(ctx context.Context, order *models.Order) int64 {
	return n.Store.UserChat(ctx, order.SellerID)
}

func (n *Notifier) send(chatID int64, text string, buttons [][]Button) {
	if chatID == 0 {
		return
	}
	if err := n.Dispatch.SendMessage(chatID, text, buttons); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("не удалось доставить уведомление")
	}
}

// NotifyTransition выбирает контрагента и текст по выполненному действию
func (n *Notifier) NotifyTransition(ctx context.Context, order *models.Order, action lifecycle.Action) {
	title := order.Product.Title
	if title == "" {
		title = "товар"
	}

	switch action {
	case lifecycle.ActionAgree:
		text := fmt.Sprintf("✅ Продавец подтвердил ваш заказ «%s».\nАдрес выдачи: %s", title, order.PickupAddress)
		if order.SellerNotes != "" {
			text += "\nКомментарий продавца: " + order.SellerNotes
		}
		n.send(n.BuyerChat(ctx, order), text, [][]Button{
			{{Text: "🚶 Я пришел за товаром", Data: CallbackData(order.ID, lifecycle.ActionClientWent)}},
			{{Text: "❌ Не смогу прийти", Data: CallbackData(order.ID, lifecycle.ActionClientNotWent)}},
		})

	case lifecycle.ActionReject:
		text := fmt.Sprintf("😔 Продавец отклонил ваш заказ «%s».", title)
		if order.SellerNotes != "" {
			text += "\nПричина: " + order.SellerNotes
		}
		n.send(n.BuyerChat(ctx, order), text, nil)

	case lifecycle.ActionClientWent:
		n.send(n.SellerChat(ctx, order),
			fmt.Sprintf("🚶 Покупатель пришел за заказом «%s» (%d шт). Подтвердите передачу.", title, order.Quantity),
			[][]Button{
				{{Text: "✅ Товар передан", Data: CallbackData(order.ID, lifecycle.ActionProductGiven)}},
				{{Text: "❌ Товар не передан", Data: CallbackData(order.ID, lifecycle.ActionProductNotGiven)}},
			})

	case lifecycle.ActionClientNotWent:
		n.send(n.SellerChat(ctx, order),
			fmt.Sprintf("⚠️ Покупатель сообщил, что не придет за заказом «%s».", title), nil)

	case lifecycle.ActionProductGiven:
		n.send(n.BuyerChat(ctx, order),
			fmt.Sprintf("🎉 Заказ «%s» завершен. Спасибо за покупку!", title), nil)

	case lifecycle.ActionProductNotGiven:
		text := fmt.Sprintf("❌ Продавец отметил, что заказ «%s» не был передан. Заказ отменен.", title)
		if order.SellerNotes != "" {
			text += "\nКомментарий: " + order.SellerNotes
		}
		n.send(n.BuyerChat(ctx, order), text, nil)

	case lifecycle.ActionAdminOverride:
		stage := lifecycle.StageOf(lifecycle.StateOf(order))
		n.send(n.BuyerChat(ctx, order),
			fmt.Sprintf("ℹ️ Статус вашего заказа «%s» изменен администратором: %s", title, lifecycle.Label(stage)), nil)
	}
}

// NotifyNewOrder сообщает продавцу о новом заказе (с кнопками решения)
// и рассылает оповещение администраторам.
func (n *Notifier) NotifyNewOrder(ctx context.Context, order *models.Order) []SendOutcome {
	summary := OrderSummary(order)

	n.send(n.SellerChat(ctx, order), "🛒 Новый заказ!\n\n"+summary, [][]Button{
		{{Text: "✅ Принять", Data: CallbackData(order.ID, lifecycle.ActionAgree)}},
		{{Text: "❌ Отклонить", Data: CallbackData(order.ID, lifecycle.ActionReject)}},
	})

	return n.BroadcastAdmins("🔔 Новый заказ в системе\n\n"+summary, nil)
}

// BroadcastAdmins пытается доставить сообщение каждому администратору.
// Сбой на одном получателе не мешает остальным; возвращается список исходов.
func (n *Notifier) BroadcastAdmins(text string, buttons [][]Button) []SendOutcome {
	outcomes := make([]SendOutcome, 0, len(n.AdminChats))
	for _, chatID := range n.AdminChats {
		err := n.Dispatch.SendMessage(chatID, text, buttons)
		if err != nil {
			log.WithError(err).WithField("chat_id", chatID).Warn("администратор недоступен")
		}
		outcomes = append(outcomes, SendOutcome{ChatID: chatID, Err: err})
	}
	return outcomes
}

// OrderSummary - краткая карточка заказа для уведомлений
func OrderSummary(order *models.Order) string {
	title := order.Product.Title
	if title == "" {
		title = order.ProductID.String()
	}
	return fmt.Sprintf("Товар: %s\nКоличество: %d\nСумма: %.0f сум\nПокупатель: %s\nТелефон: %s\nАдрес: %s",
		title, order.Quantity, order.Total, order.FullName, order.Phone, order.Address)
}
