package models

// Event kinds fixed by the protocol (NIP-01 and friends).
// These are an input contract, not something this client gets to choose.
const (
	KindProfileMetadata  = 0
	KindTextNote         = 1
	KindContactList      = 3
	KindDirectMessage    = 4
	KindEventDeletion    = 5
	KindRepost           = 6
	KindReaction         = 7
	KindChannelCreation  = 40
	KindChannelMetadata  = 41
	KindChannelMessage   = 42
	KindChannelHide      = 43
	KindChannelMuteUser  = 44
)

// Tag names carrying relationships between events.
const (
	TagEvent  = "e"
	TagPubkey = "p"
)

// Event is an immutable, signed unit of protocol data. Identity and equality
// are by ID (the content hash); corrections arrive as new events.
type Event struct {
	ID        string     `json:"id" validate:"required,len=64,hexadecimal"`
	PubKey    string     `json:"pubkey" validate:"required,len=64,hexadecimal"`
	CreatedAt int64      `json:"created_at" validate:"required,gt=0"`
	Kind      int        `json:"kind" validate:"gte=0,lte=65535"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig" validate:"required,len=128,hexadecimal"`
}

// TagValue returns the value of the first tag with the given name.
func (v Event) TagValue(name string) (string, bool) {
	for _, tag := range v.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1], true
		}
	}
	return "", false
}

// TagValues returns the values of every tag with the given name, in order.
func (v Event) TagValues(name string) []string {
	var out []string
	for _, tag := range v.Tags {
		if len(tag) >= 2 && tag[0] == name {
			out = append(out, tag[1])
		}
	}
	return out
}

// ReplyTo extracts the id of the event this one replies to: the first
// reply-type ("e") tag, if any. An event without one is a root of its own.
func (v Event) ReplyTo() (string, bool) {
	return v.TagValue(TagEvent)
}

// MentionedKeys returns the pubkeys referenced via "p" tags.
func (v Event) MentionedKeys() []string {
	return v.TagValues(TagPubkey)
}

// Filter selects events, both for one-shot queries and live subscriptions.
// Zero fields mean "no constraint on this dimension".
type Filter struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []int    `json:"kinds,omitempty"`
	ETags   []string `json:"#e,omitempty"`
	PTags   []string `json:"#p,omitempty"`
	Since   *int64   `json:"since,omitempty"`
	Until   *int64   `json:"until,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Matches reports whether an event satisfies every set constraint.
func (f Filter) Matches(evt Event) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, evt.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, evt.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 {
		matched := false
		for _, kind := range f.Kinds {
			if kind == evt.Kind {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(f.ETags) > 0 && !tagIntersects(evt, TagEvent, f.ETags) {
		return false
	}
	if len(f.PTags) > 0 && !tagIntersects(evt, TagPubkey, f.PTags) {
		return false
	}
	if f.Since != nil && evt.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && evt.CreatedAt > *f.Until {
		return false
	}
	return true
}

func containsString(list []string, probe string) bool {
	for _, entry := range list {
		if entry == probe {
			return true
		}
	}
	return false
}

func tagIntersects(evt Event, name string, wanted []string) bool {
	for _, value := range evt.TagValues(name) {
		if containsString(wanted, value) {
			return true
		}
	}
	return false
}
