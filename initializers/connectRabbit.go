package initializers

import (
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Exchange для событий заказов
const OrdersExchange = "orders.events"

var AmqpChannel *amqp.Channel

// ConnectRabbit поднимает канал для публикации событий заказов.
// Брокер необязателен: без него события просто не публикуются.
func ConnectRabbit(config *Config) {
	if config.AmqpUrl == "" {
		return
	}

	conn, err := amqp.Dial(config.AmqpUrl)
	if err != nil {
		log.WithError(err).Warn("rabbitmq недоступен, публикация событий отключена")
		return
	}

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("не удалось открыть канал rabbitmq")
		return
	}

	err = ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil)
	if err != nil {
		log.WithError(err).Warn("не удалось объявить exchange")
		return
	}

	AmqpChannel = ch
	log.Info("подключение к rabbitmq установлено")
}
