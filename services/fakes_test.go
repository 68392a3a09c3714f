package services

import (
	"context"
	"errors"
	"sync"

	uuid "github.com/satori/go.uuid"

	"lavka/models"
)

// memStore - реализация Store в памяти для тестов. Контракт ReserveStock
// тот же, что у GormStore: условное списание под блокировкой, без
// read-modify-write между проверкой и записью.
type memStore struct {
	mu            sync.Mutex
	products      map[uuid.UUID]*models.Product
	orders        map[uuid.UUID]*models.Order
	notifications map[uuid.UUID]*models.AdminNotification
	chats         map[uuid.UUID]int64
	sellers       map[uuid.UUID]bool

	failCreateOrder bool
}

func newMemStore() *memStore {
	return &memStore{
		products:      make(map[uuid.UUID]*models.Product),
		orders:        make(map[uuid.UUID]*models.Order),
		notifications: make(map[uuid.UUID]*models.AdminNotification),
		chats:         make(map[uuid.UUID]int64),
		sellers:       make(map[uuid.UUID]bool),
	}
}

func (m *memStore) ProductByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ReserveStock(_ context.Context, productID uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok || p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	p.OrderCount += qty
	return nil
}

func (m *memStore) ReleaseStock(_ context.Context, productID uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[productID]; ok {
		p.Stock += qty
		p.OrderCount -= qty
	}
	return nil
}

func (m *memStore) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateOrder {
		return errors.New("storage down")
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memStore) OrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) SaveOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memStore) OrdersByTgSession(_ context.Context, token string, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.TgSession == token && len(out) < limit {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) UserChat(_ context.Context, userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chats[userID]
}

func (m *memStore) CreateNotification(_ context.Context, n *models.AdminNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *memStore) NotificationByID(_ context.Context, id uuid.UUID) (*models.AdminNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memStore) SaveNotification(_ context.Context, n *models.AdminNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *memStore) SetUserSeller(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sellers[userID] = true
	return nil
}

func (m *memStore) ApproveProduct(_ context.Context, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[productID]; ok {
		p.Approved = true
	}
	return nil
}

func (m *memStore) ListProducts(_ context.Context, offset, limit int) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Product
	for _, p := range m.products {
		if p.Approved && p.Stock > 0 {
			all = append(all, *p)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *memStore) SearchProducts(_ context.Context, _ string, _ int) ([]models.Product, error) {
	return nil, nil
}

type sentMessage struct {
	ChatID  int64
	Text    string
	Buttons [][]Button
}

// stubDispatcher записывает отправки; для перечисленных чатов возвращает ошибку
type stubDispatcher struct {
	mu        sync.Mutex
	sent      []sentMessage
	failChats map[int64]bool
}

func (d *stubDispatcher) SendMessage(chatID int64, text string, buttons [][]Button) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failChats[chatID] {
		return errors.New("chat unreachable")
	}
	d.sent = append(d.sent, sentMessage{ChatID: chatID, Text: text, Buttons: buttons})
	return nil
}

func (d *stubDispatcher) sentTo(chatID int64) []sentMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []sentMessage
	for _, m := range d.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}
