package api

import (
	"github.com/gofiber/fiber/v2"
)

func listConversations(c *fiber.Ctx) error {
	conversations := Session.Conversations.Conversations()

	return c.JSON(fiber.Map{
		"count": len(conversations),
		"data":  conversations,
	})
}

func getConversation(c *fiber.Ctx) error {
	return c.JSON(Session.Conversations.Conversation(c.Params("contactKey")))
}

func markConversationRead(c *fiber.Ctx) error {
	Session.Conversations.MarkRead(c.Params("contactKey"))
	return c.SendStatus(fiber.StatusOK)
}

func sendDirectMessage(c *fiber.Ctx) error {
	var data struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(data.Content) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "content is required")
	}

	action, err := Session.Conversations.SendMessage(c.UserContext(), c.Params("contactKey"), data.Content)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(action)
}

// sendMessage is the flat companion of sendDirectMessage for clients that
// keep the contact in the body instead of the path.
func sendMessage(c *fiber.Ctx) error {
	var data struct {
		ContactKey string `json:"contact_key"`
		Content    string `json:"content"`
	}
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(data.ContactKey) == 0 || len(data.Content) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "contact_key and content are required")
	}

	action, err := Session.Conversations.SendMessage(c.UserContext(), data.ContactKey, data.Content)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(action)
}

func listChannelMessages(c *fiber.Ctx) error {
	take := c.QueryInt("take", 50)

	messages := Session.Feed.ChannelTimeline(c.Params("channelId"), take)

	return c.JSON(fiber.Map{
		"count": len(messages),
		"data":  messages,
	})
}

func sendChannelMessage(c *fiber.Ctx) error {
	var data struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(data.Content) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "content is required")
	}

	evt, err := Session.Publish.SendChannelMessage(c.UserContext(), c.Params("channelId"), data.Content)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(evt)
}
