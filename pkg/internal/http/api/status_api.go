package api

import (
	"github.com/gofiber/fiber/v2"
)

func getStatus(c *fiber.Ctx) error {
	status := Session.Service.ConnectionStatus()

	return c.JSON(fiber.Map{
		"is_connected":        status.IsConnected,
		"connected_endpoints": status.ConnectedEndpoints,
		"event_count":         Session.Store.Len(),
		"pending_actions":     Session.Actions.Pending(),
	})
}
