package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"lavka/controllers"
	"lavka/middleware"
)

func Register(app *fiber.App) {
	api := app.Group("/api")

	orders := api.Group("/orders", middleware.DeserializeUser)
	orders.Get("/", controllers.GetMyOrders)
	orders.Get("/seller", controllers.GetOrdersForSeller)
	orders.Post("/", controllers.CreateOrder)
	orders.Get("/:id", controllers.GetOrder)
	orders.Post("/:id/action", controllers.OrderAction)

	notifications := api.Group("/notifications", middleware.DeserializeUser)
	notifications.Get("/", controllers.GetNotifications)
	notifications.Post("/:id/resolve", controllers.ResolveNotification)

	// Живая лента событий заказов для веб-панелей
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/orders", websocket.New(controllers.OrderFeed))
}
