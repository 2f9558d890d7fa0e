package services

import (
	"fmt"
	"strings"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

func fakeID(seed byte) string {
	return strings.Repeat(fmt.Sprintf("%02x", seed), 32)
}

func fakeSig(seed byte) string {
	return strings.Repeat(fmt.Sprintf("%02x", seed), 64)
}

func fakeEvent(idSeed, authorSeed byte, kind int, createdAt int64, tags [][]string, content string) models.Event {
	return models.Event{
		ID:        fakeID(idSeed),
		PubKey:    fakeID(authorSeed),
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
		Sig:       fakeSig(idSeed),
	}
}

type memoryKV struct {
	data map[string]string
}

func (v *memoryKV) GetItem(key string) (string, error) {
	return v.data[key], nil
}

func (v *memoryKV) SetItem(key, value string) error {
	if v.data == nil {
		v.data = make(map[string]string)
	}
	v.data[key] = value
	return nil
}
