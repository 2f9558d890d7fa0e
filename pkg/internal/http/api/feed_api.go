package api

import (
	"github.com/gofiber/fiber/v2"
)

func listFeed(c *fiber.Ctx) error {
	take := c.QueryInt("take", 20)

	entries := Session.Feed.BuildFeed(take)

	return c.JSON(fiber.Map{
		"count": len(entries),
		"data":  entries,
	})
}

func getThread(c *fiber.Ctx) error {
	entry, ok := Session.Feed.Thread(c.Params("postId"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no such thread")
	}

	return c.JSON(entry)
}
