package api

import (
	"github.com/gofiber/fiber/v2"
)

func getProfile(c *fiber.Ctx) error {
	profile, err := Session.Profiles.Get(c.UserContext(), c.Params("pubkey"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	if profile == nil {
		return fiber.NewError(fiber.StatusNotFound, "no profile published for this key")
	}

	return c.JSON(profile)
}
