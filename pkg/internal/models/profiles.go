package models

// Profile is the parsed content of a kind-0 metadata event.
type Profile struct {
	PubKey  string `json:"pubkey"`
	Name    string `json:"name"`
	About   string `json:"about"`
	Picture string `json:"picture"`
	Nip05   string `json:"nip05"`
}
