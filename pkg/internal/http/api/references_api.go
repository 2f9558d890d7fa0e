package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

// resolveReferences parses the submitted content for entity citations and
// resolves each one, so renderers can fetch a whole post's mentions in one
// round trip.
func resolveReferences(c *fiber.Ctx) error {
	content := c.Query("content")
	if len(content) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "content is required")
	}

	refs := Session.References.ParseReferences(content)
	resolved := lo.Map(refs, func(ref models.Reference, _ int) models.ResolvedReference {
		return Session.References.Resolve(c.UserContext(), ref)
	})

	return c.JSON(fiber.Map{
		"count": len(resolved),
		"data":  resolved,
	})
}
