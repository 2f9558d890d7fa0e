package models

type ReferenceType = string

const (
	ReferenceUser  = "user"
	ReferenceNote  = "note"
	ReferenceEvent = "event"
)

// Reference is an inline entity citation found in event content, e.g.
// nostr:npub1… or nostr:note1…. Offsets are byte positions into the content.
type Reference struct {
	Type       ReferenceType `json:"type"`
	Data       string        `json:"data"`
	StartIndex int           `json:"start_index"`
	EndIndex   int           `json:"end_index"`
}

// ResolvedReference is the entity behind a citation. Unavailable marks a
// tombstone: the fetch failed or nothing was found, and renderers show a
// placeholder instead of the entity.
type ResolvedReference struct {
	Reference   Reference `json:"reference"`
	Profile     *Profile  `json:"profile,omitempty"`
	Event       *Event    `json:"event,omitempty"`
	Unavailable bool      `json:"unavailable"`
}
