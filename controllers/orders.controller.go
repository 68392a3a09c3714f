package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	uuid "github.com/satori/go.uuid"

	"lavka/initializers"
	"lavka/lifecycle"
	"lavka/models"
	"lavka/services"
	"lavka/utils"
)

// Сервисы внедряются из main при старте приложения
var (
	OrderSvc *services.OrderService
	NotifSvc *services.NotificationService
)

var validate = validator.New()

func GetOrdersForSeller(c *fiber.Ctx) error {
	user := c.Locals("user").(models.UserResponse)

	// Проверяем, является ли пользователь продавцом
	if !user.Seller {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  "error",
			"message": "Вы не являетесь продавцом",
		})
	}

	var orders []models.Order
	err := utils.Paginate(c, initializers.DB.Where("seller_id = ?", user.ID).Preload("Product").Order("created_at DESC"), &orders)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "Заказы не найдены",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   orders,
		"meta":   c.Locals("meta"),
	})
}

func GetMyOrders(c *fiber.Ctx) error {
	user := c.Locals("user").(models.UserResponse)

	var orders []models.Order
	err := utils.Paginate(c, initializers.DB.Where("user_id = ?", user.ID).Preload("Product").Order("created_at DESC"), &orders)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "Заказы не найдены",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   orders,
		"meta":   c.Locals("meta"),
	})
}

// GetOrder отдает заказ вместе с вычисленным этапом и прогрессом
func GetOrder(c *fiber.Ctx) error {
	orderID, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Некорректный идентификатор заказа",
		})
	}

	var order models.Order
	if err := initializers.DB.Preload("Product").First(&order, "id = ?", orderID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "Заказ не найден",
		})
	}

	state := lifecycle.StateOf(&order)
	stage := lifecycle.StageOf(state)
	return c.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"order":    order,
			"stage":    int(stage),
			"label":    lifecycle.Label(stage),
			"progress": lifecycle.Progress(state),
		},
	})
}

type CreateOrderRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	FullName  string `json:"full_name" validate:"required,min=2"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required,min=5"`
	Notes     string `json:"notes"`
}

// CreateOrder - оформление заказа из веб-интерфейса. Идет через тот же
// координатор, что и заказы из бота.
func CreateOrder(c *fiber.Ctx) error {
	user := c.Locals("user").(models.UserResponse)

	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Ошибка обработки данных",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}
	if !utils.ValidPhone(req.Phone) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Некорректный номер телефона",
		})
	}

	productID, _ := uuid.FromString(req.ProductID)
	order, err := OrderSvc.CreateOrder(c.Context(), services.CreateOrderInput{
		ProductID: productID,
		Quantity:  req.Quantity,
		FullName:  req.FullName,
		Phone:     utils.NormalizePhone(req.Phone),
		Address:   req.Address,
		BuyerID:   user.ID,
		Notes:     req.Notes,
	})
	if err != nil {
		return orderErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"data":   order,
	})
}

type OrderActionRequest struct {
	Action        string `json:"action" validate:"required"`
	Notes         string `json:"notes"`
	PickupAddress string `json:"pickup_address"`
	ForceStatus   string `json:"force_status"` // Только для admin_override
}

// OrderAction - единая точка смены статуса заказа из веб-интерфейса.
// Повторяет валидацию бота, потому что оба входа используют один координатор.
func OrderAction(c *fiber.Ctx) error {
	user := c.Locals("user").(models.UserResponse)

	orderID, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Некорректный идентификатор заказа",
		})
	}

	var req OrderActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Ошибка обработки данных",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}

	// Повторный заказ - не переход, а создание нового заказа по отмененному.
	// Принадлежность проверяет координатор: повторить чужой заказ нельзя.
	if req.Action == "reorder" {
		order, err := OrderSvc.Reorder(c.Context(), orderID, user.ID, user.Admin)
		if err != nil {
			return orderErrorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status": "success",
			"data":   order,
		})
	}

	action := lifecycle.Action(req.Action)
	if !actionAllowed(c, user, orderID, action) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  "error",
			"message": "Это действие вам недоступно",
		})
	}

	order, err := OrderSvc.ApplyAction(c.Context(), orderID, action, lifecycle.Params{
		Notes:         req.Notes,
		PickupAddress: req.PickupAddress,
		ForceStatus:   req.ForceStatus,
	})
	if err != nil {
		return orderErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   order,
	})
}

// actionAllowed проверяет, что действие выполняет его законная сторона
func actionAllowed(c *fiber.Ctx, user models.UserResponse, orderID uuid.UUID, action lifecycle.Action) bool {
	if user.Admin {
		return true
	}
	if action == lifecycle.ActionAdminOverride {
		return false
	}

	var order models.Order
	if err := initializers.DB.Select("user_id", "seller_id").First(&order, "id = ?", orderID).Error; err != nil {
		// Пускаем дальше - координатор вернет "заказ не найден"
		return true
	}

	switch action {
	case lifecycle.ActionAgree, lifecycle.ActionReject,
		lifecycle.ActionProductGiven, lifecycle.ActionProductNotGiven:
		return order.SellerID == user.ID
	case lifecycle.ActionClientWent, lifecycle.ActionClientNotWent:
		return order.UserID == user.ID
	default:
		return false
	}
}

// orderErrorResponse переводит ошибки координатора в HTTP-статусы
func orderErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrOrderCancelled):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":  "error",
			"message": "Действие недоступно на текущем этапе заказа",
		})
	case errors.Is(err, lifecycle.ErrUnknownAction),
		errors.Is(err, lifecycle.ErrBadOverrideStatus),
		errors.Is(err, services.ErrBadQuantity),
		errors.Is(err, services.ErrNotCancelled):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrNotOrderParty):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  "error",
			"message": "Это действие вам недоступно",
		})
	case errors.Is(err, services.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":  "error",
			"message": "Недостаточно товара на складе",
		})
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrProductNotListed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Внутренняя ошибка, попробуйте позже",
		})
	}
}
