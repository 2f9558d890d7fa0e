package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nocturnehq/nocturne/pkg/internal/services"
)

// Session is the signed-in user's engine state, wired in from main before the
// server starts listening.
var Session *services.Session

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL)
	{
		api.Get("/status", getStatus)

		api.Get("/feed", listFeed)
		api.Get("/threads/:postId", getThread)

		api.Post("/posts", createPost)
		api.Post("/posts/:postId/replies", createReply)
		api.Post("/posts/:postId/like", togglePostLike)
		api.Post("/posts/:postId/repost", repostPost)

		api.Post("/messages", sendMessage)
		api.Get("/conversations", listConversations)
		api.Get("/conversations/:contactKey", getConversation)
		api.Post("/conversations/:contactKey/read", markConversationRead)
		api.Post("/conversations/:contactKey/messages", sendDirectMessage)

		api.Get("/channels/:channelId/messages", listChannelMessages)
		api.Post("/channels/:channelId/messages", sendChannelMessage)

		api.Get("/profiles/:pubkey", getProfile)
		api.Get("/references", resolveReferences)
	}
}
