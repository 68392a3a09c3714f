package services

import (
	"context"
	"sync"
	"testing"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lavka/lifecycle"
	"lavka/models"
)

const (
	sellerChatID = int64(100)
	buyerChatID  = int64(777)
	adminChatID  = int64(900)
)

type testEnv struct {
	store    *memStore
	dispatch *stubDispatcher
	svc      *OrderService
	sellerID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	dispatch := &stubDispatcher{failChats: make(map[int64]bool)}
	sellerID := uuid.NewV4()
	store.chats[sellerID] = sellerChatID

	notifier := &Notifier{
		Dispatch:   dispatch,
		Store:      store,
		AdminChats: []int64{adminChatID},
	}
	return &testEnv{
		store:    store,
		dispatch: dispatch,
		svc:      &OrderService{Store: store, Notifier: notifier},
		sellerID: sellerID,
	}
}

func (e *testEnv) addProduct(stock int, price float64) *models.Product {
	p := &models.Product{
		ID:       uuid.NewV4(),
		SellerID: e.sellerID,
		Title:    "Чайник электрический",
		Price:    price,
		Stock:    stock,
		Approved: true,
	}
	e.store.products[p.ID] = p
	return p
}

func draftFor(p *models.Product, qty int) CreateOrderInput {
	return CreateOrderInput{
		ProductID: p.ID,
		Quantity:  qty,
		FullName:  "Алишер Усманов",
		Phone:     "+998901234567",
		Address:   "г. Ташкент, ул. Навои, 12",
		TgSession: "tg:777",
	}
}

func TestComputeTotal(t *testing.T) {
	p := &models.Product{Price: 10000}
	assert.Equal(t, float64(30000), ComputeTotal(p, 3))

	p.HasDelivery = true
	p.DeliveryPrice = 15000
	assert.Equal(t, float64(45000), ComputeTotal(p, 3))
}

// Количество 3 при остатке 5 и цене 10000: сумма 30000,
// после оформления остаток 2, счетчик заказов +3
func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)

	order, err := env.svc.CreateOrder(context.Background(), draftFor(p, 3))
	require.NoError(t, err)

	assert.Equal(t, float64(30000), order.Total)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Nil(t, order.IsAgree)

	stored := env.store.products[p.ID]
	assert.Equal(t, 2, stored.Stock)
	assert.Equal(t, 3, stored.OrderCount)
}

func TestCreateOrderQuantityBounds(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)

	_, err := env.svc.CreateOrder(context.Background(), draftFor(p, 0))
	assert.ErrorIs(t, err, ErrBadQuantity)

	_, err = env.svc.CreateOrder(context.Background(), draftFor(p, 6))
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCreateOrderUnapprovedProduct(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)
	env.store.products[p.ID].Approved = false

	_, err := env.svc.CreateOrder(context.Background(), draftFor(p, 1))
	assert.ErrorIs(t, err, ErrProductNotListed)
}

// Два конкурирующих заказа на весь остаток: проходит ровно один
func TestConcurrentCreateAdmitsExactlyOne(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(3, 10000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.CreateOrder(context.Background(), draftFor(p, 3))
		}(i)
	}
	wg.Wait()

	var admitted, rejected int
	for _, err := range errs {
		if err == nil {
			admitted++
		} else {
			require.ErrorIs(t, err, ErrInsufficientStock)
			rejected++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, env.store.products[p.ID].Stock)
	assert.Equal(t, 3, env.store.products[p.ID].OrderCount)
}

// Сбой записи заказа возвращает резерв - частичных заказов не остается
func TestCreateOrderFailureReleasesStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)
	env.store.failCreateOrder = true

	_, err := env.svc.CreateOrder(context.Background(), draftFor(p, 2))
	require.Error(t, err)

	assert.Equal(t, 5, env.store.products[p.ID].Stock)
	assert.Equal(t, 0, env.store.products[p.ID].OrderCount)
	assert.Empty(t, env.store.orders)
}

// Новый заказ: продавцу карточка с кнопками решения, администраторам - рассылка
func TestCreateOrderNotifies(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)

	_, err := env.svc.CreateOrder(context.Background(), draftFor(p, 1))
	require.NoError(t, err)

	toSeller := env.dispatch.sentTo(sellerChatID)
	require.Len(t, toSeller, 1)
	require.Len(t, toSeller[0].Buttons, 2, "кнопки принять/отклонить")

	assert.Len(t, env.dispatch.sentTo(adminChatID), 1)
}

// Создание заказа оставляет администраторам запись с типизированным payload
func TestCreateOrderRecordsAdminNotification(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)

	order, err := env.svc.CreateOrder(context.Background(), draftFor(p, 1))
	require.NoError(t, err)

	require.Len(t, env.store.notifications, 1)
	for _, n := range env.store.notifications {
		assert.Equal(t, models.NotificationNewOrder, n.Type)
		assert.Equal(t, models.NotificationStatusPending, n.Status)

		var data models.NewOrderData
		require.NoError(t, n.DecodeData(&data))
		assert.Equal(t, order.ID, data.OrderID)
	}
}

func makeOrder(env *testEnv, p *models.Product) *models.Order {
	order, err := env.svc.CreateOrder(context.Background(), draftFor(p, 1))
	if err != nil {
		panic(err)
	}
	return order
}

func TestAgreeSetsPickupAddress(t *testing.T) {
	env := newTestEnv(t)
	order := makeOrder(env, env.addProduct(5, 10000))

	updated, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionAgree, lifecycle.Params{
		PickupAddress: "ул. Амира Темура, 15",
	})
	require.NoError(t, err)

	assert.Equal(t, "ул. Амира Темура, 15", updated.PickupAddress)
	require.NotNil(t, updated.IsAgree)
	assert.True(t, *updated.IsAgree)

	stored, _ := env.store.OrderByID(context.Background(), order.ID)
	assert.Equal(t, "ул. Амира Темура, 15", stored.PickupAddress)
}

// Повторный agree с теми же аргументами - отказ, состояние не меняется
func TestAgreeTwiceRejected(t *testing.T) {
	env := newTestEnv(t)
	order := makeOrder(env, env.addProduct(5, 10000))

	_, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionAgree, lifecycle.Params{
		PickupAddress: "ул. Амира Темура, 15",
	})
	require.NoError(t, err)

	before, _ := env.store.OrderByID(context.Background(), order.ID)
	_, err = env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionAgree, lifecycle.Params{
		PickupAddress: "ул. Амира Темура, 15",
	})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	after, _ := env.store.OrderByID(context.Background(), order.ID)
	assert.Equal(t, before, after)
}

// Отказ продавца: заказ отменен и покупателю уходит ровно одно уведомление
// на адрес из токена анонимной сессии
func TestRejectNotifiesBuyerOnce(t *testing.T) {
	env := newTestEnv(t)
	order := makeOrder(env, env.addProduct(5, 10000))
	env.dispatch.sent = nil // отсекаем уведомления о создании

	updated, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionReject, lifecycle.Params{
		Notes: "товар закончился",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	require.NotNil(t, updated.IsAgree)
	assert.False(t, *updated.IsAgree)

	toBuyer := env.dispatch.sentTo(buyerChatID)
	require.Len(t, toBuyer, 1)
	assert.Len(t, env.dispatch.sent, 1, "никому кроме покупателя не отправляется")
}

// product_given: флаг и статус меняются одним сохранением
func TestProductGivenCompletesOrder(t *testing.T) {
	env := newTestEnv(t)
	order := makeOrder(env, env.addProduct(5, 10000))

	_, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionAgree, lifecycle.Params{PickupAddress: "ул. Навои, 1"})
	require.NoError(t, err)
	_, err = env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionClientWent, lifecycle.Params{})
	require.NoError(t, err)

	updated, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionProductGiven, lifecycle.Params{})
	require.NoError(t, err)

	require.NotNil(t, updated.IsClientClaimed)
	assert.True(t, *updated.IsClientClaimed)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)

	stored, _ := env.store.OrderByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.IsClientClaimed)
	assert.True(t, *stored.IsClientClaimed)
}

// Неявка покупателя не отменяет заказ
func TestClientNotWentKeepsPending(t *testing.T) {
	env := newTestEnv(t)
	order := makeOrder(env, env.addProduct(5, 10000))

	_, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionAgree, lifecycle.Params{PickupAddress: "ул. Навои, 1"})
	require.NoError(t, err)

	updated, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionClientNotWent, lifecycle.Params{})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, updated.Status)
	require.NotNil(t, updated.IsClientWent)
	assert.False(t, *updated.IsClientWent)
}

func TestReorder(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)

	buyerID := uuid.NewV4()
	in := draftFor(p, 1)
	in.BuyerID = buyerID
	order, err := env.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	// Повторить можно только отмененный заказ
	_, err = env.svc.Reorder(context.Background(), order.ID, buyerID, false)
	assert.ErrorIs(t, err, ErrNotCancelled)

	_, err = env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionReject, lifecycle.Params{})
	require.NoError(t, err)

	reordered, err := env.svc.Reorder(context.Background(), order.ID, buyerID, false)
	require.NoError(t, err)

	assert.NotEqual(t, order.ID, reordered.ID)
	assert.Equal(t, models.OrderStatusPending, reordered.Status)
	assert.Nil(t, reordered.IsAgree)
	assert.Equal(t, order.Quantity, reordered.Quantity)
	assert.Equal(t, order.TgSession, reordered.TgSession)
	assert.Equal(t, 3, env.store.products[p.ID].Stock, "остаток списан повторно")
}

// Повторить заказ может только его заказчик либо администратор:
// чужой отмененный заказ не дает списать склад и разослать уведомления
func TestReorderRequiresOrderOwner(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)

	buyerID := uuid.NewV4()
	in := draftFor(p, 1)
	in.BuyerID = buyerID
	order, err := env.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	_, err = env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionReject, lifecycle.Params{})
	require.NoError(t, err)

	stockBefore := env.store.products[p.ID].Stock
	ordersBefore := len(env.store.orders)

	// Посторонний пользователь получает отказ без побочных эффектов
	_, err = env.svc.Reorder(context.Background(), order.ID, uuid.NewV4(), false)
	assert.ErrorIs(t, err, ErrNotOrderParty)
	assert.Equal(t, stockBefore, env.store.products[p.ID].Stock)
	assert.Len(t, env.store.orders, ordersBefore)

	// Администратор может повторить любой заказ
	_, err = env.svc.Reorder(context.Background(), order.ID, uuid.NewV4(), true)
	assert.NoError(t, err)
}

// Анонимный заказ из бота (без аккаунта) повторяет только администратор
func TestReorderAnonymousOrderAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(5, 10000)
	order := makeOrder(env, p) // UserID = uuid.Nil

	_, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionReject, lifecycle.Params{})
	require.NoError(t, err)

	_, err = env.svc.Reorder(context.Background(), order.ID, uuid.Nil, false)
	assert.ErrorIs(t, err, ErrNotOrderParty)

	_, err = env.svc.Reorder(context.Background(), order.ID, uuid.Nil, true)
	assert.NoError(t, err)
}

func TestAdminOverrideReconcilePolicy(t *testing.T) {
	env := newTestEnv(t)
	env.svc.ReconcileFlags = true
	order := makeOrder(env, env.addProduct(5, 10000))

	updated, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionAdminOverride, lifecycle.Params{
		ForceStatus: models.OrderStatusCompleted,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCompleted, updated.Status)
	require.NotNil(t, updated.IsClientClaimed)
	assert.True(t, *updated.IsClientClaimed)
}

type recordingSink struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (s *recordingSink) OrderUpdated(ev OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestEventsPublishedOnTransitions(t *testing.T) {
	env := newTestEnv(t)
	sink := &recordingSink{}
	env.svc.Sinks = []EventSink{sink}

	order := makeOrder(env, env.addProduct(5, 10000))
	_, err := env.svc.ApplyAction(context.Background(), order.ID, lifecycle.ActionAgree, lifecycle.Params{PickupAddress: "ул. Навои, 1"})
	require.NoError(t, err)

	require.Len(t, sink.events, 2)
	assert.Equal(t, "created", sink.events[0].Action)
	assert.Equal(t, 25, sink.events[0].Progress)
	assert.Equal(t, "agree", sink.events[1].Action)
	assert.Equal(t, 50, sink.events[1].Progress)
}
