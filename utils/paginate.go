package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Paginate выполняет запрос с limit/offset из query-параметров (?page=, ?limit=)
// и кладет метаданные страницы в c.Locals("meta").
func Paginate(c *fiber.Ctx, query *gorm.DB, dest interface{}) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return err
	}

	if err := query.Offset((page - 1) * limit).Limit(limit).Find(dest).Error; err != nil {
		return err
	}

	c.Locals("meta", fiber.Map{
		"page":  page,
		"limit": limit,
		"total": total,
	})
	return nil
}
