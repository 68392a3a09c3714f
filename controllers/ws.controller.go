package controllers

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"

	"lavka/services"
)

// WsHub раздает события заказов подключенным веб-клиентам
// (живые обновления в панелях продавца и администратора).
type WsHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// Hub - общий на процесс; регистрируется как EventSink координатора
var Hub = &WsHub{clients: make(map[*websocket.Conn]bool)}

// OrderUpdated реализует services.EventSink. Доставка best-effort:
// клиент с ошибкой записи просто отключается.
func (h *WsHub) OrderUpdated(ev services.OrderEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

func (h *WsHub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *WsHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// OrderFeed - websocket-эндпоинт живой ленты заказов
func OrderFeed(c *websocket.Conn) {
	Hub.register(c)
	defer func() {
		Hub.unregister(c)
		_ = c.Close()
	}()

	// Читаем только для обнаружения разрыва соединения
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			log.WithError(err).Debug("websocket-клиент отключился")
			return
		}
	}
}
