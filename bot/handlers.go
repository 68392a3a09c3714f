package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"lavka/lifecycle"
	"lavka/services"
	"lavka/utils"
)

const welcomeText = `Добро пожаловать в магазин!

/catalog - каталог товаров
/search - поиск по названию
/orders - мои заказы
/contact - написать в поддержку
/help - справка`

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	// Сообщения одного чата обрабатываются строго по одному:
	// параллельные обработчики не должны двигать одну сессию одновременно
	lock := b.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	if b.isAwaitingPassword(chatID) {
		b.handlePasswordInput(message)
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Незавершенная операция имеет приоритет над всем остальным
	if session, ok := b.sessions.Get(chatID); ok {
		b.handleSessionText(ctx, chatID, session, message)
		return
	}

	b.send(chatID, "Не понял вас. Посмотрите /help")
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		b.sessions.Delete(chatID)
		b.send(chatID, welcomeText)
	case "help":
		b.send(chatID, welcomeText)
	case "catalog":
		b.sessions.Delete(chatID)
		b.sendCatalogPage(ctx, chatID, 1)
	case "orders":
		b.sessions.Delete(chatID)
		b.sendMyOrders(ctx, chatID)
	case "search":
		b.sessions.Set(chatID, &Session{State: StateSearching})
		b.send(chatID, "🔍 Что ищем? Напишите название товара.")
	case "contact":
		b.sessions.Set(chatID, &Session{State: StateContactMessage})
		b.send(chatID, "✉️ Напишите сообщение, мы передадим его администратору.")
	case "cancel":
		if _, ok := b.sessions.Get(chatID); ok {
			b.sessions.Delete(chatID)
			b.send(chatID, "Действие отменено.")
		} else {
			b.send(chatID, "Нечего отменять.")
		}
	case "admin":
		if b.isAdmin(chatID) {
			b.send(chatID, "Вы уже вошли как администратор.")
			return
		}
		b.setAwaitingPassword(chatID, true)
		b.send(chatID, "🔐 Введите пароль администратора:")
	default:
		b.send(chatID, "Неизвестная команда. /help")
	}
}

func (b *Bot) handlePasswordInput(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.setAwaitingPassword(chatID, false)

	// Сразу убираем сообщение с паролем из чата
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, message.MessageID)); err != nil {
		log.WithError(err).Debug("не удалось удалить сообщение с паролем")
	}

	if b.config.AdminPasswordHash == "" {
		b.send(chatID, "Вход в админку не настроен.")
		return
	}
	err := bcrypt.CompareHashAndPassword([]byte(b.config.AdminPasswordHash), []byte(message.Text))
	if err != nil {
		b.send(chatID, "❌ Неверный пароль.")
		return
	}

	b.setAdmin(chatID)
	b.send(chatID, "✅ Вы вошли как администратор.")
}

func (b *Bot) handleSessionText(ctx context.Context, chatID int64, session *Session, message *tgbotapi.Message) {
	text := message.Text

	switch session.State {
	case StateOrdering:
		b.advanceOrderCapture(ctx, chatID, session, text)

	case StateContactMessage:
		// Сессия одноразовая: следующее сообщение - текст обращения
		b.sessions.Delete(chatID)
		_, _, err := b.notifications.CreateSupportMessage(ctx, chatID, message.From.UserName, text)
		if err != nil {
			log.WithError(err).Warn("не удалось сохранить обращение")
			b.send(chatID, "Не получилось отправить сообщение, попробуйте позже.")
			return
		}
		utils.SendAdminEmail(b.config, "Новое обращение в поддержку", "<p>"+text+"</p>")
		b.send(chatID, "✅ Сообщение передано администратору. Ответ придет сюда же.")

	case StateSearching:
		b.sessions.Delete(chatID)
		b.searchProducts(ctx, chatID, text)

	case StateAccepting:
		if len([]rune(strings.TrimSpace(text))) < 5 {
			b.send(chatID, "Адрес слишком короткий, опишите подробнее.")
			return
		}
		b.sessions.Delete(chatID)
		_, err := b.orders.ApplyAction(ctx, session.OrderID, lifecycle.ActionAgree, lifecycle.Params{
			PickupAddress: strings.TrimSpace(text),
		})
		if err != nil {
			if errors.Is(err, lifecycle.ErrInvalidTransition) || errors.Is(err, lifecycle.ErrOrderCancelled) {
				b.send(chatID, "Заказ уже в другом статусе, принять его нельзя.")
			} else {
				log.WithError(err).Warn("не удалось принять заказ")
				b.send(chatID, "Не получилось принять заказ, попробуйте позже.")
			}
			return
		}
		b.send(chatID, "✅ Заказ принят, покупатель получил адрес выдачи.")

	default:
		b.sessions.Delete(chatID)
		b.send(chatID, "Сессия устарела, начните заново: /catalog")
	}
}

// sendMyOrders показывает последние заказы, оформленные из этого чата
func (b *Bot) sendMyOrders(ctx context.Context, chatID int64) {
	orders, err := b.store.OrdersByTgSession(ctx, fmt.Sprintf("tg:%d", chatID), 10)
	if err != nil {
		log.WithError(err).Warn("не удалось загрузить заказы чата")
		b.send(chatID, "Не получилось загрузить заказы, попробуйте позже.")
		return
	}
	if len(orders) == 0 {
		b.send(chatID, "У вас пока нет заказов. Загляните в /catalog")
		return
	}

	var sb strings.Builder
	sb.WriteString("📦 Ваши заказы:\n\n")
	for i := range orders {
		o := &orders[i]
		title := o.Product.Title
		if title == "" {
			title = "товар"
		}
		state := lifecycle.StateOf(o)
		fmt.Fprintf(&sb, "• %s, %d шт, %.0f сум\n  %s (%d%%)\n",
			title, o.Quantity, o.Total, lifecycle.Label(lifecycle.StageOf(state)), lifecycle.Progress(state))
	}
	b.send(chatID, sb.String())
}

// advanceOrderCapture продвигает пошаговое оформление и на последнем шаге
// передает черновик координатору. Сессия удаляется независимо от исхода
// создания - участник никогда не застревает на «залипшем» шаге.
func (b *Bot) advanceOrderCapture(ctx context.Context, chatID int64, session *Session, text string) {
	res := Advance(session, text)

	switch res.Outcome {
	case StepReject:
		b.send(chatID, res.Prompt)
	case StepContinue:
		b.sessions.Set(chatID, session)
		b.send(chatID, res.Prompt)
	case StepComplete:
		b.sessions.Delete(chatID)

		order, err := b.orders.CreateOrder(ctx, services.CreateOrderInput{
			ProductID: session.ProductID,
			Quantity:  session.Quantity,
			FullName:  session.FullName,
			Phone:     session.Phone,
			Address:   session.Address,
			BuyerID:   uuid.Nil,
			TgSession: fmt.Sprintf("tg:%d", chatID),
		})
		if err != nil {
			if errors.Is(err, services.ErrInsufficientStock) {
				b.send(chatID, "😔 Увы, товар только что разобрали. Загляните в каталог позже.")
			} else {
				log.WithError(err).Warn("не удалось создать заказ из бота")
				b.send(chatID, "Не получилось оформить заказ, попробуйте еще раз.")
			}
			return
		}

		b.send(chatID, fmt.Sprintf(
			"🎉 Заказ оформлен!\n\n%s\n\nПродавец подтвердит заказ, и вам придет адрес выдачи.",
			services.OrderSummary(order)))
	}
}
