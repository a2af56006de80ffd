package config

import (
	"bytes"

	"github.com/goccy/go-yaml"
)

// Optional is a value that was either written in the source YAML or not.
// Presence is tracked separately from the value, so an explicit empty
// string is distinguishable from an omitted key.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// IsSet reports whether the value was present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// Or returns the value when present and fallback otherwise.
func (o Optional[T]) Or(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// UnmarshalYAML implements yaml.BytesUnmarshaler. It is only invoked for keys
// present in the document; an explicit null leaves the Optional unset.
func (o *Optional[T]) UnmarshalYAML(b []byte) error {
	if isNull(b) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := yaml.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalYAML implements yaml.InterfaceMarshaler.
func (o Optional[T]) MarshalYAML() (any, error) {
	if !o.set {
		return nil, nil
	}
	return o.value, nil
}

func isNull(b []byte) bool {
	switch string(bytes.TrimSpace(b)) {
	case "", "~", "null", "Null", "NULL":
		return true
	}
	return false
}
