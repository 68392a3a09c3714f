package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"

	"lavka/lifecycle"
	"lavka/services"
)

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	data := cq.Data

	// Нажатия кнопок сериализуются с текстовыми сообщениями того же чата
	lock := b.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	// Гасим спиннер на кнопке
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.WithError(err).Debug("не удалось ответить на callback")
	}

	parts := strings.Split(data, ":")
	switch parts[0] {
	case "cat": // cat:<page>
		if len(parts) != 2 {
			return
		}
		page, err := strconv.Atoi(parts[1])
		if err != nil || page < 1 {
			page = 1
		}
		b.editCatalogPage(ctx, chatID, cq.Message.MessageID, page)

	case "buy": // buy:<product_id>
		if len(parts) != 2 {
			return
		}
		productID, err := uuid.FromString(parts[1])
		if err != nil {
			return
		}
		b.startOrderCapture(ctx, chatID, productID)

	case "ord": // ord:<order_id>:<action>
		if len(parts) != 3 {
			return
		}
		orderID, err := uuid.FromString(parts[1])
		if err != nil {
			return
		}
		b.applyOrderAction(ctx, chatID, orderID, lifecycle.Action(parts[2]))

	case "adm": // adm:<notification_id>:approve|reject
		if len(parts) != 3 {
			return
		}
		if !b.isAdmin(chatID) {
			b.send(chatID, "Этот раздел только для администраторов.")
			return
		}
		notifID, err := uuid.FromString(parts[1])
		if err != nil {
			return
		}
		_, err = b.notifications.Resolve(ctx, notifID, parts[2] == "approve", "")
		if errors.Is(err, services.ErrAlreadyResolved) {
			b.send(chatID, "Уведомление уже обработано другим администратором.")
			return
		}
		if err != nil {
			log.WithError(err).Warn("не удалось обработать уведомление")
			b.send(chatID, "Не получилось обработать уведомление.")
			return
		}
		b.send(chatID, "Готово.")
	}
}

// startOrderCapture открывает сессию оформления, фиксируя остаток на старте.
// Остаток проверяется снова при создании заказа - гонки ловятся там.
func (b *Bot) startOrderCapture(ctx context.Context, chatID int64, productID uuid.UUID) {
	product, err := b.store.ProductByID(ctx, productID)
	if err != nil {
		b.send(chatID, "Товар не найден, возможно его уже сняли с продажи.")
		return
	}
	if product.Stock < 1 {
		b.send(chatID, "😔 Товар закончился.")
		return
	}

	b.sessions.Set(chatID, &Session{
		State:     StateOrdering,
		Step:      StepQuantity,
		ProductID: product.ID,
		Stock:     product.Stock,
	})
	b.send(chatID, "Сколько штук вам нужно? В наличии: "+strconv.Itoa(product.Stock))
}

// applyOrderAction переводит заказ через общий координатор.
// Кнопка доступна только той стороне, чье это действие (либо администратору).
func (b *Bot) applyOrderAction(ctx context.Context, chatID int64, orderID uuid.UUID, action lifecycle.Action) {
	if !b.allowedFor(ctx, chatID, orderID, action) {
		b.send(chatID, "Это действие вам недоступно.")
		return
	}

	// Принятие заказа требует адреса выдачи - дособираем его диалогом
	if action == lifecycle.ActionAgree {
		b.sessions.Set(chatID, &Session{State: StateAccepting, OrderID: orderID})
		b.send(chatID, "📍 Укажите адрес, где покупатель сможет забрать товар.")
		return
	}

	_, err := b.orders.ApplyAction(ctx, orderID, action, lifecycle.Params{})
	switch {
	case err == nil:
		b.send(chatID, "✅ Готово.")
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, lifecycle.ErrOrderCancelled):
		b.send(chatID, "Действие сейчас недоступно - статус заказа уже изменился.")
	case errors.Is(err, services.ErrOrderNotFound):
		b.send(chatID, "Заказ не найден.")
	default:
		log.WithError(err).WithField("order_id", orderID).Warn("не удалось выполнить действие")
		b.send(chatID, "Произошла ошибка, попробуйте позже.")
	}
}

func (b *Bot) allowedFor(ctx context.Context, chatID int64, orderID uuid.UUID, action lifecycle.Action) bool {
	if b.isAdmin(chatID) {
		return true
	}
	order, err := b.store.OrderByID(ctx, orderID)
	if err != nil {
		return false
	}

	switch action {
	case lifecycle.ActionAgree, lifecycle.ActionReject,
		lifecycle.ActionProductGiven, lifecycle.ActionProductNotGiven:
		return b.notifier.SellerChat(ctx, order) == chatID
	case lifecycle.ActionClientWent, lifecycle.ActionClientNotWent:
		return b.notifier.BuyerChat(ctx, order) == chatID
	default:
		return false
	}
}
