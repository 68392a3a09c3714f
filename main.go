package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"lavka/bot"
	"lavka/controllers"
	"lavka/initializers"
	"lavka/routes"
	"lavka/services"
)

func main() {
	config, err := initializers.LoadConfig(".")
	if err != nil {
		log.WithError(err).Fatal("не удалось загрузить конфигурацию")
	}

	initializers.ConnectDB(&config)
	initializers.ConnectRedis(&config)
	initializers.ConnectRabbit(&config)

	api, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		log.WithError(err).Fatal("не удалось подключиться к Telegram Bot API")
	}

	store := services.NewGormStore(initializers.DB)
	notifier := &services.Notifier{
		Dispatch:   &bot.TelegramDispatcher{API: api},
		Store:      store,
		AdminChats: config.AdminChatIDs(),
	}

	sinks := []services.EventSink{controllers.Hub}
	if initializers.AmqpChannel != nil {
		sinks = append(sinks, &services.AmqpSink{
			Channel:  initializers.AmqpChannel,
			Exchange: initializers.OrdersExchange,
		})
	}

	orderSvc := &services.OrderService{
		Store:          store,
		Notifier:       notifier,
		Sinks:          sinks,
		ReconcileFlags: config.OverrideReconcileFlags,
	}
	notifSvc := &services.NotificationService{
		Store:    store,
		Notifier: notifier,
	}
	controllers.OrderSvc = orderSvc
	controllers.NotifSvc = notifSvc

	tgBot := bot.New(api, &config, bot.NewSessionStore(), orderSvc, notifSvc, store, notifier)

	app := fiber.New()
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.ClientOrigin,
		AllowCredentials: true,
	}))
	routes.Register(app)
	routes.NotFoundRoute(app)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tgBot.Run(ctx)
	})
	g.Go(func() error {
		return app.Listen(":" + config.ServerPort)
	})
	g.Go(func() error {
		<-ctx.Done()
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("сервис остановлен с ошибкой")
	}
	log.Info("сервис остановлен")
}
