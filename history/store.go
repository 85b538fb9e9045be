package history

import (
	"encoding/json"
	"fmt"
)

// storageKey is the single KV slot holding the serialized item list.
const storageKey = "history"

// Store is the persistence boundary: a string KV where one key holds the
// whole history as a JSON array.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

// Archive reads and writes the item list through a Store.
type Archive struct {
	store Store
}

func NewArchive(store Store) *Archive {
	return &Archive{store: store}
}

// Load returns the saved history, newest first. A corrupted or unreadable
// blob yields an empty list AND an error, so the app starts usable while
// still being able to tell the user something was lost.
func (a *Archive) Load() ([]Item, error) {
	raw, ok, err := a.store.Get(storageKey)
	if err != nil {
		return []Item{}, fmt.Errorf("loading history: %w", err)
	}
	if !ok || raw == "" {
		return []Item{}, nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []Item{}, fmt.Errorf("saved history is corrupted: %w", err)
	}
	for i := range items {
		items[i].normalize()
	}
	return items, nil
}

func (a *Archive) Save(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := a.store.Set(storageKey, string(raw)); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}
