package services

import (
	"encoding/json"
	"time"

	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"lavka/lifecycle"
	"lavka/models"
)

// OrderEvent рассылается веб-интерфейсам (websocket) и внешним потребителям (rabbitmq)
// после каждого перехода жизненного цикла заказа.
type OrderEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	SellerID uuid.UUID `json:"seller_id"`
	Action   string    `json:"action"` // created | agree | reject | ...
	Status   string    `json:"status"`
	Stage    int       `json:"stage"`
	Progress int       `json:"progress"`
	Label    string    `json:"label"`
	At       time.Time `json:"at"`
}

// EventSink получает события заказов. Доставка best-effort.
type EventSink interface {
	OrderUpdated(ev OrderEvent)
}

func newOrderEvent(order *models.Order, action string) OrderEvent {
	state := lifecycle.StateOf(order)
	stage := lifecycle.StageOf(state)
	return OrderEvent{
		OrderID:  order.ID,
		SellerID: order.SellerID,
		Action:   action,
		Status:   order.Status,
		Stage:    int(stage),
		Progress: lifecycle.Progress(state),
		Label:    lifecycle.Label(stage),
		At:       time.Now(),
	}
}

// AmqpSink публикует события в topic-exchange с ключом orders.<action>
type AmqpSink struct {
	Channel  *amqp.Channel
	Exchange string
}

func (s *AmqpSink) OrderUpdated(ev OrderEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	err = s.Channel.Publish(s.Exchange, "orders."+ev.Action, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.WithError(err).WithField("order_id", ev.OrderID).Warn("не удалось опубликовать событие заказа")
	}
}
