package services

import (
	"context"
	"errors"
	"fmt"

	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"

	"lavka/lifecycle"
	"lavka/models"
)

var (
	ErrBadQuantity      = errors.New("количество должно быть положительным")
	ErrProductNotListed = errors.New("товар недоступен для заказа")
	ErrNotCancelled     = errors.New("повторить можно только отмененный заказ")
	ErrNotOrderParty    = errors.New("заказ принадлежит другому пользователю")
)

// OrderService - координатор жизненного цикла заказа. Через него идут
// и REST-запросы веб-интерфейса, и действия из телеграм-бота, поэтому
// валидация переходов не может разойтись между входами.
type OrderService struct {
	Store    Store
	Notifier *Notifier
	Sinks    []EventSink
	// Политика admin_override: приводить ли флаги к статусу (см. OVERRIDE_RECONCILE_FLAGS)
	ReconcileFlags bool
}

// CreateOrderInput - проверенный черновик заказа (из бота или веб-формы)
type CreateOrderInput struct {
	ProductID uuid.UUID
	Quantity  int
	FullName  string
	Phone     string
	Address   string
	BuyerID   uuid.UUID // Нулевой UUID для анонимных заказов из бота
	TgSession string    // Токен "tg:<chat_id>" для маршрутизации уведомлений анониму
	Notes     string
}

// ComputeTotal - сумма заказа: цена * количество, плюс доставка если есть
func ComputeTotal(product *models.Product, quantity int) float64 {
	total := product.Price * float64(quantity)
	if product.HasDelivery {
		total += product.DeliveryPrice
	}
	return total
}

// CreateOrder резервирует товар и создает заказ. Списание склада и инкремент
// счетчика заказов атомарны с созданием: при гонке за остаток один из
// конкурирующих заказов получит ErrInsufficientStock, частичных заказов не остается.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.Quantity < 1 {
		return nil, ErrBadQuantity
	}

	product, err := s.Store.ProductByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Approved {
		return nil, ErrProductNotListed
	}

	if err := s.Store.ReserveStock(ctx, in.ProductID, in.Quantity); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:         uuid.NewV4(),
		UserID:     in.BuyerID,
		SellerID:   product.SellerID,
		ProductID:  product.ID,
		Product:    *product,
		Quantity:   in.Quantity,
		Total:      ComputeTotal(product, in.Quantity),
		FullName:   in.FullName,
		Phone:      in.Phone,
		Address:    in.Address,
		Status:     models.OrderStatusPending,
		BuyerNotes: in.Notes,
		TgSession:  in.TgSession,
	}

	if err := s.Store.CreateOrder(ctx, order); err != nil {
		// Возвращаем резерв, чтобы не потерять остаток при сбое записи
		if relErr := s.Store.ReleaseStock(ctx, in.ProductID, in.Quantity); relErr != nil {
			log.WithError(relErr).WithField("product_id", in.ProductID).Error("не удалось вернуть резерв")
		}
		return nil, err
	}

	s.afterCreate(ctx, order)
	return order, nil
}

func (s *OrderService) afterCreate(ctx context.Context, order *models.Order) {
	notif := &models.AdminNotification{
		ID:      uuid.NewV4(),
		Type:    models.NotificationNewOrder,
		Status:  models.NotificationStatusPending,
		Content: fmt.Sprintf("Новый заказ на сумму %.0f сум", order.Total),
	}
	if err := notif.SetData(models.NewOrderData{OrderID: order.ID}); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Warn("не удалось сериализовать данные уведомления")
	} else if err := s.Store.CreateNotification(ctx, notif); err != nil {
		log.WithError(err).Warn("не удалось записать уведомление о заказе")
	}

	if s.Notifier != nil {
		s.Notifier.NotifyNewOrder(ctx, order)
	}
	s.publish(order, "created")
}

// ApplyAction - единая точка входа для переходов жизненного цикла.
// Загружает заказ, прогоняет чистую таблицу переходов, сохраняет и уведомляет.
func (s *OrderService) ApplyAction(ctx context.Context, orderID uuid.UUID, action lifecycle.Action, p lifecycle.Params) (*models.Order, error) {
	order, err := s.Store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	p.ReconcileFlags = s.ReconcileFlags
	next, err := lifecycle.Apply(lifecycle.StateOf(order), action, p)
	if err != nil {
		return nil, err
	}

	lifecycle.ApplyToOrder(order, next)
	switch action {
	case lifecycle.ActionAgree:
		order.PickupAddress = p.PickupAddress
		if p.Notes != "" {
			order.SellerNotes = p.Notes
		}
	case lifecycle.ActionReject, lifecycle.ActionProductGiven, lifecycle.ActionProductNotGiven:
		if p.Notes != "" {
			order.SellerNotes = p.Notes
		}
	}

	if err := s.Store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": order.ID,
		"action":   action,
		"status":   order.Status,
	}).Info("переход заказа выполнен")

	if s.Notifier != nil {
		s.Notifier.NotifyTransition(ctx, order, action)
	}
	s.publish(order, string(action))

	return order, nil
}

// Reorder создает новый заказ по данным отмененного: тот же товар, количество
// и контакты, свежая проверка остатка через общий путь создания.
// Доступен только заказчику исходного заказа либо администратору: повтор
// списывает склад и рассылает уведомления от имени исходного покупателя.
func (s *OrderService) Reorder(ctx context.Context, orderID, actorID uuid.UUID, admin bool) (*models.Order, error) {
	prev, err := s.Store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && (prev.UserID == uuid.Nil || prev.UserID != actorID) {
		return nil, ErrNotOrderParty
	}
	if prev.Status != models.OrderStatusCancelled {
		return nil, ErrNotCancelled
	}

	return s.CreateOrder(ctx, CreateOrderInput{
		ProductID: prev.ProductID,
		Quantity:  prev.Quantity,
		FullName:  prev.FullName,
		Phone:     prev.Phone,
		Address:   prev.Address,
		BuyerID:   prev.UserID,
		TgSession: prev.TgSession,
		Notes:     prev.BuyerNotes,
	})
}

func (s *OrderService) publish(order *models.Order, action string) {
	ev := newOrderEvent(order, action)
	for _, sink := range s.Sinks {
		sink.OrderUpdated(ev)
	}
}
