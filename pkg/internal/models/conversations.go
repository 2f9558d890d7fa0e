package models

// ConversationMessage is a direct message as rendered: either a confirmed
// protocol event or a not-yet-confirmed optimistic send.
type ConversationMessage struct {
	ID        string `json:"id"`
	AuthorKey string `json:"author_key"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
	Pending   bool   `json:"pending"`
}

// Conversation is a direct-message transcript with one contact, ordered by
// timestamp ascending. UnreadCount is cleared by an explicit mark-as-read.
type Conversation struct {
	ContactKey  string                `json:"contact_key"`
	Messages    []ConversationMessage `json:"messages"`
	LastMessage *ConversationMessage  `json:"last_message"`
	UnreadCount int                   `json:"unread_count"`
}
