package nostr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	jsoniter "github.com/json-iterator/go"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventID computes the canonical content hash of an event: the sha256 of the
// serialized array [0, pubkey, created_at, kind, tags, content].
func EventID(pubkey string, createdAt int64, kind int, tags [][]string, content string) (string, error) {
	if tags == nil {
		tags = [][]string{}
	}
	serial, err := json.Marshal([]any{0, pubkey, createdAt, kind, tags, content})
	if err != nil {
		return "", fmt.Errorf("unable to serialize event for hashing: %v", err)
	}
	sum := sha256.Sum256(serial)
	return hex.EncodeToString(sum[:]), nil
}

// Signer holds the user's keypair and turns drafts into signed events.
type Signer struct {
	privKey *btcec.PrivateKey
	pubKey  string
}

func NewSigner(privateKeyHex string) (*Signer, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("unable to decode private key: expected 32 hex-encoded bytes")
	}
	priv, pub := btcec.PrivKeyFromBytes(raw)
	return &Signer{
		privKey: priv,
		pubKey:  hex.EncodeToString(schnorr.SerializePubKey(pub)),
	}, nil
}

func (v *Signer) PubKey() string {
	return v.pubKey
}

// Sign fills in pubkey, id and signature, producing a complete event.
func (v *Signer) Sign(draft EventDraft) (models.Event, error) {
	id, err := EventID(v.pubKey, draft.CreatedAt, draft.Kind, draft.Tags, draft.Content)
	if err != nil {
		return models.Event{}, err
	}

	digest, _ := hex.DecodeString(id)
	sig, err := schnorr.Sign(v.privKey, digest)
	if err != nil {
		return models.Event{}, fmt.Errorf("unable to sign event: %v", err)
	}

	return models.Event{
		ID:        id,
		PubKey:    v.pubKey,
		CreatedAt: draft.CreatedAt,
		Kind:      draft.Kind,
		Tags:      draft.Tags,
		Content:   draft.Content,
		Sig:       hex.EncodeToString(sig.Serialize()),
	}, nil
}

// VerifyEvent checks that the id is the canonical hash of the content and the
// signature is a valid schnorr signature over it by the claimed author.
func VerifyEvent(evt models.Event) bool {
	id, err := EventID(evt.PubKey, evt.CreatedAt, evt.Kind, evt.Tags, evt.Content)
	if err != nil || id != evt.ID {
		return false
	}

	rawPub, err := hex.DecodeString(evt.PubKey)
	if err != nil {
		return false
	}
	pub, err := schnorr.ParsePubKey(rawPub)
	if err != nil {
		return false
	}

	rawSig, err := hex.DecodeString(evt.Sig)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(rawSig)
	if err != nil {
		return false
	}

	digest, _ := hex.DecodeString(evt.ID)
	return sig.Verify(digest, pub)
}
