package bot

import (
	"sync"

	uuid "github.com/satori/go.uuid"
)

// Состояния диалоговой сессии
type SessionState string

const (
	StateOrdering       SessionState = "ordering"
	StateContactMessage SessionState = "contact_message"
	StateSearching      SessionState = "searching"
	// Продавец принимает заказ: следующее сообщение - адрес выдачи
	StateAccepting SessionState = "accepting"
)

// Шаги оформления заказа, строго по порядку
type Step int

const (
	StepQuantity Step = iota
	StepFullName
	StepPhone
	StepAddress
)

// Session - незавершенная операция одного участника диалога.
// Живет только в памяти: рестарт процесса сбрасывает все сессии,
// участник просто начинает оформление заново.
type Session struct {
	State SessionState
	Step  Step

	// Для StateAccepting: какой заказ принимает продавец
	OrderID uuid.UUID

	// Накопленные поля черновика заказа
	ProductID uuid.UUID
	Stock     int // Остаток на момент старта сессии (при создании заказа проверяется повторно)
	Quantity  int
	FullName  string
	Phone     string
	Address   string
}

// SessionStore - хранилище сессий, по одной на чат.
// Внедряется в обработчики, а не живет глобальной переменной.
type SessionStore interface {
	Get(chatID int64) (*Session, bool)
	Set(chatID int64, s *Session)
	Delete(chatID int64)
}

type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewSessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[int64]*Session)}
}

func (m *memorySessionStore) Get(chatID int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

func (m *memorySessionStore) Set(chatID int64, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = s
}

func (m *memorySessionStore) Delete(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
