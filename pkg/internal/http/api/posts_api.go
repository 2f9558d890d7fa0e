package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/nocturnehq/nocturne/pkg/internal/services"
)

func createPost(c *fiber.Ctx) error {
	var data struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(data.Content) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "content is required")
	}

	evt, err := Session.Publish.PublishNote(c.UserContext(), data.Content)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(evt)
}

func createReply(c *fiber.Ctx) error {
	var data struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(data.Content) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "content is required")
	}

	evt, err := Session.Publish.ReplyTo(c.UserContext(), c.Params("postId"), data.Content)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(evt)
}

func togglePostLike(c *fiber.Ctx) error {
	counter, err := Session.Publish.ToggleLike(c.UserContext(), c.Params("postId"))
	if err != nil {
		if errors.Is(err, services.ErrActionInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(counter)
}

func repostPost(c *fiber.Ctx) error {
	counter, err := Session.Publish.Repost(c.UserContext(), c.Params("postId"))
	if err != nil {
		if errors.Is(err, services.ErrActionInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(counter)
}
