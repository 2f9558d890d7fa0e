package nostr

import (
	"strings"
	"testing"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

var testPrivateKey = strings.Repeat("0", 63) + "1"

func TestEventIDIsDeterministic(t *testing.T) {
	pubkey := strings.Repeat("ab", 32)

	first, err := EventID(pubkey, 1700000000, models.KindTextNote, nil, "hello")
	if err != nil {
		t.Fatal(err)
	}
	second, err := EventID(pubkey, 1700000000, models.KindTextNote, [][]string{}, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("nil and empty tags must hash identically")
	}
	if len(first) != 64 {
		t.Fatalf("expected a 64-char hex id, got %d chars", len(first))
	}

	changed, _ := EventID(pubkey, 1700000000, models.KindTextNote, nil, "hello!")
	if changed == first {
		t.Fatal("different content must produce a different id")
	}
}

func TestSignProducesVerifiableEvent(t *testing.T) {
	signer, err := NewSigner(testPrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(signer.PubKey()) != 64 {
		t.Fatalf("expected a 64-char hex pubkey, got %q", signer.PubKey())
	}

	evt, err := signer.Sign(EventDraft{
		Kind:      models.KindTextNote,
		Content:   "signed and sealed",
		CreatedAt: 1700000000,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !VerifyEvent(evt) {
		t.Fatal("a freshly signed event must verify")
	}

	tampered := evt
	tampered.Content = "signed and tampered"
	if VerifyEvent(tampered) {
		t.Fatal("content tampering must fail verification")
	}

	forged := evt
	forged.Sig = strings.Repeat("00", 64)
	if VerifyEvent(forged) {
		t.Fatal("a forged signature must fail verification")
	}
}

func TestNewSignerRejectsBadKeys(t *testing.T) {
	if _, err := NewSigner("not-hex"); err == nil {
		t.Fatal("non-hex key should be rejected")
	}
	if _, err := NewSigner("abcd"); err == nil {
		t.Fatal("short key should be rejected")
	}
}
