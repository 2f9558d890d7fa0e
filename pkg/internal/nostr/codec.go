package nostr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// DecodeEntity decodes a bech32-encoded protocol entity (npub1…, note1…,
// nevent1…) into its prefix and the 32-byte hex id or pubkey it carries.
// nevent payloads are TLV; the special (type 0) record holds the event id.
func DecodeEntity(entity string) (prefix string, value string, err error) {
	prefix, data, err := bech32.DecodeNoLimit(strings.ToLower(entity))
	if err != nil {
		return "", "", fmt.Errorf("unable to decode entity: %v", err)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", "", fmt.Errorf("unable to regroup entity bits: %v", err)
	}

	switch prefix {
	case "npub", "note":
		if len(raw) != 32 {
			return "", "", fmt.Errorf("unexpected %s payload length %d", prefix, len(raw))
		}
		return prefix, hex.EncodeToString(raw), nil
	case "nevent", "nprofile":
		for cursor := 0; cursor+2 <= len(raw); {
			typ, length := raw[cursor], int(raw[cursor+1])
			cursor += 2
			if cursor+length > len(raw) {
				break
			}
			if typ == 0 && length == 32 {
				return prefix, hex.EncodeToString(raw[cursor : cursor+length]), nil
			}
			cursor += length
		}
		return "", "", fmt.Errorf("no special record in %s entity", prefix)
	default:
		return "", "", fmt.Errorf("unsupported entity prefix %q", prefix)
	}
}
