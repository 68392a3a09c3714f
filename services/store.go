package services

import (
	"context"
	"errors"

	uuid "github.com/satori/go.uuid"
	"gorm.io/gorm"

	"lavka/models"
)

var (
	ErrProductNotFound      = errors.New("товар не найден")
	ErrOrderNotFound        = errors.New("заказ не найден")
	ErrNotificationNotFound = errors.New("уведомление не найдено")
	ErrInsufficientStock    = errors.New("недостаточно товара на складе")
)

// Store - слой доступа к данным, через который работает координатор заказов.
// В проде за интерфейсом стоит GORM; в тестах - память.
type Store interface {
	ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// ReserveStock атомарно списывает qty со склада и увеличивает счетчик заказов.
	// Возвращает ErrInsufficientStock, если товара не хватает.
	ReserveStock(ctx context.Context, productID uuid.UUID, qty int) error
	// ReleaseStock возвращает резерв при неудачном создании заказа
	ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error

	CreateOrder(ctx context.Context, order *models.Order) error
	OrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	// OrdersByTgSession возвращает последние заказы, оформленные из чата
	// с этим токеном анонимной сессии
	OrdersByTgSession(ctx context.Context, token string, limit int) ([]models.Order, error)

	// UserChat возвращает привязанный Telegram-чат пользователя (0 = нет)
	UserChat(ctx context.Context, userID uuid.UUID) int64

	CreateNotification(ctx context.Context, n *models.AdminNotification) error
	NotificationByID(ctx context.Context, id uuid.UUID) (*models.AdminNotification, error)
	SaveNotification(ctx context.Context, n *models.AdminNotification) error

	// Каскады решений администратора
	SetUserSeller(ctx context.Context, userID uuid.UUID) error
	ApproveProduct(ctx context.Context, productID uuid.UUID) error

	// Каталог для бота
	ListProducts(ctx context.Context, offset, limit int) ([]models.Product, int64, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error)
}

// GormStore - боевая реализация поверх Postgres
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// ReserveStock - одиночный условный UPDATE, а не read-modify-write:
// при гонке за последнюю единицу товара ровно один запрос пройдет условие stock >= qty.
func (s *GormStore) ReserveStock(ctx context.Context, productID uuid.UUID, qty int) error {
	res := s.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]interface{}{
			"stock":       gorm.Expr("stock - ?", qty),
			"order_count": gorm.Expr("order_count + ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (s *GormStore) ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return s.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock":       gorm.Expr("stock + ?", qty),
			"order_count": gorm.Expr("order_count - ?", qty),
		}).Error
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.DB.WithContext(ctx).Create(order).Error
}

func (s *GormStore) OrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("Product").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) SaveOrder(ctx context.Context, order *models.Order) error {
	return s.DB.WithContext(ctx).Save(order).Error
}

func (s *GormStore) OrdersByTgSession(ctx context.Context, token string, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Where("tg_session = ?", token).
		Preload("Product").
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (s *GormStore) UserChat(ctx context.Context, userID uuid.UUID) int64 {
	if userID == uuid.Nil {
		return 0
	}
	var user models.User
	if err := s.DB.WithContext(ctx).Select("tg_chat_id").First(&user, "id = ?", userID).Error; err != nil {
		return 0
	}
	return user.TgChatID
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.AdminNotification) error {
	return s.DB.WithContext(ctx).Create(n).Error
}

func (s *GormStore) NotificationByID(ctx context.Context, id uuid.UUID) (*models.AdminNotification, error) {
	var n models.AdminNotification
	err := s.DB.WithContext(ctx).First(&n, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *GormStore) SaveNotification(ctx context.Context, n *models.AdminNotification) error {
	return s.DB.WithContext(ctx).Save(n).Error
}

func (s *GormStore) SetUserSeller(ctx context.Context, userID uuid.UUID) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("seller", true).Error
}

func (s *GormStore) ApproveProduct(ctx context.Context, productID uuid.UUID) error {
	return s.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("approved", true).Error
}

func (s *GormStore) ListProducts(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	var total int64
	base := s.DB.WithContext(ctx).Model(&models.Product{}).Where("approved = ? AND stock > 0", true)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := base.Order("created_at DESC").Offset(offset).Limit(limit).Find(&products).Error
	return products, total, err
}

func (s *GormStore) SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error) {
	var products []models.Product
	err := s.DB.WithContext(ctx).
		Where("approved = ? AND stock > 0 AND title ILIKE ?", true, "%"+query+"%").
		Limit(limit).Find(&products).Error
	return products, err
}
