package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/satori/go.uuid"

	"lavka/initializers"
	"lavka/models"
	"lavka/services"
	"lavka/utils"
)

// GetNotifications - список уведомлений для админ-панели
func GetNotifications(c *fiber.Ctx) error {
	user := c.Locals("user").(models.UserResponse)
	if !user.Admin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  "error",
			"message": "Только для администраторов",
		})
	}

	query := initializers.DB.Model(&models.AdminNotification{}).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if typ := c.Query("type"); typ != "" {
		query = query.Where("type = ?", typ)
	}

	var notifications []models.AdminNotification
	if err := utils.Paginate(c, query, &notifications); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Не удалось загрузить уведомления",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   notifications,
		"meta":   c.Locals("meta"),
	})
}

type ResolveNotificationRequest struct {
	Approve  bool   `json:"approve"`
	Response string `json:"response"`
}

// ResolveNotification закрывает уведомление решением администратора.
// Каскадные изменения (статус продавца, одобрение товара) и ответ автору
// выполняет сервис уведомлений.
func ResolveNotification(c *fiber.Ctx) error {
	user := c.Locals("user").(models.UserResponse)
	if !user.Admin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  "error",
			"message": "Только для администраторов",
		})
	}

	notifID, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Некорректный идентификатор уведомления",
		})
	}

	var req ResolveNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Ошибка обработки данных",
		})
	}

	notif, err := NotifSvc.Resolve(c.Context(), notifID, req.Approve, req.Response)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyResolved):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"status":  "error",
				"message": "Уведомление уже обработано",
			})
		case errors.Is(err, services.ErrNotificationNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  "error",
				"message": "Уведомление не найдено",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Не удалось обработать уведомление",
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   notif,
	})
}
