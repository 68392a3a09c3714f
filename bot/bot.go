package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"lavka/initializers"
	"lavka/services"
)

// Bot - диалоговый вход в систему заказов. Держит сессии оформления
// и переводит команды, тексты и нажатия кнопок в вызовы координатора.
type Bot struct {
	api      *tgbotapi.BotAPI
	config   *initializers.Config
	sessions SessionStore

	orders        *services.OrderService
	notifications *services.NotificationService
	store         services.Store
	notifier      *services.Notifier

	mu               sync.RWMutex
	admins           map[int64]bool // Чаты, вошедшие в админку по паролю
	awaitingPassword map[int64]bool
	chatLocks        map[int64]*sync.Mutex
}

func New(
	api *tgbotapi.BotAPI,
	config *initializers.Config,
	sessions SessionStore,
	orders *services.OrderService,
	notifications *services.NotificationService,
	store services.Store,
	notifier *services.Notifier,
) *Bot {
	return &Bot{
		api:              api,
		config:           config,
		sessions:         sessions,
		orders:           orders,
		notifications:    notifications,
		store:            store,
		notifier:         notifier,
		admins:           make(map[int64]bool),
		awaitingPassword: make(map[int64]bool),
		chatLocks:        make(map[int64]*sync.Mutex),
	}
}

// Run крутит long-polling до отмены контекста.
// Каждое обновление обрабатывается в своей горутине, но обработчики
// одного чата сериализуются через chatLock: два быстрых сообщения
// подряд не должны менять одну сессию параллельно.
func (b *Bot) Run(ctx context.Context) error {
	log.WithField("bot", b.api.Self.UserName).Info("бот запущен")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			if update.CallbackQuery != nil {
				go b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message != nil {
				go b.handleMessage(ctx, update.Message)
			}
		}
	}
}

// chatLock выдает мьютекс чата, создавая его при первом обращении
func (b *Bot) chatLock(chatID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		b.chatLocks[chatID] = l
	}
	return l
}

func (b *Bot) send(chatID int64, text string) {
	if err := b.notifier.Dispatch.SendMessage(chatID, text, nil); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("не удалось отправить сообщение")
	}
}

func (b *Bot) sendWithButtons(chatID int64, text string, buttons [][]services.Button) {
	if err := b.notifier.Dispatch.SendMessage(chatID, text, buttons); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("не удалось отправить сообщение")
	}
}

func (b *Bot) isAdmin(chatID int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.admins[chatID]
}

func (b *Bot) isAwaitingPassword(chatID int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.awaitingPassword[chatID]
}

func (b *Bot) setAwaitingPassword(chatID int64, v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v {
		b.awaitingPassword[chatID] = true
	} else {
		delete(b.awaitingPassword, chatID)
	}
}

func (b *Bot) setAdmin(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.admins[chatID] = true
}
