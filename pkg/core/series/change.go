package series

import (
	"bytes"
	"encoding/json"
	"slices"
)

// ChangeMode says what an edit does to an event's roles or hymns
type ChangeMode int

const (
	// ChangeUnchanged leaves existing content untouched
	ChangeUnchanged ChangeMode = iota
	// ChangeClear removes all existing content
	ChangeClear
	// ChangeReplace swaps existing content for the supplied items
	ChangeReplace
)

func (m ChangeMode) String() string {
	switch m {
	case ChangeClear:
		return "clear"
	case ChangeReplace:
		return "replace"
	default:
		return "unchanged"
	}
}

// Change is a tri-state content edit. The zero value is Unchanged, so a JSON
// field that is absent (or null) preserves content, [] clears it and a
// non-empty array replaces it.
type Change[T any] struct {
	mode  ChangeMode
	items []T
}

// Unchanged returns a change that preserves existing content
func Unchanged[T any]() Change[T] {
	return Change[T]{}
}

// Clear returns a change that removes existing content
func Clear[T any]() Change[T] {
	return Change[T]{mode: ChangeClear}
}

// Replace returns a change that swaps content for items. An empty list clears.
func Replace[T any](items []T) Change[T] {
	if len(items) == 0 {
		return Clear[T]()
	}
	return Change[T]{mode: ChangeReplace, items: slices.Clone(items)}
}

func (c Change[T]) Mode() ChangeMode {
	return c.mode
}

// Items returns the replacement items (nil unless Mode is ChangeReplace)
func (c Change[T]) Items() []T {
	return slices.Clone(c.items)
}

// Apply returns the content that results from applying the change to current
func (c Change[T]) Apply(current []T) []T {
	switch c.mode {
	case ChangeClear:
		return nil
	case ChangeReplace:
		return c.Items()
	default:
		return current
	}
}

func (c *Change[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Unchanged[T]()
		return nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*c = Replace(items)
	return nil
}

func (c Change[T]) MarshalJSON() ([]byte, error) {
	switch c.mode {
	case ChangeClear:
		return []byte("[]"), nil
	case ChangeReplace:
		return json.Marshal(c.items)
	default:
		return []byte("null"), nil
	}
}
