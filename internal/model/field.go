package model

import (
	"bytes"
	"encoding/json"
)

// Field is one entry of a partial update. An unset Field leaves the stored value alone;
// a set Field overwrites it, with Null standing for an explicit JSON null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked for keys present in the payload, which is what marks the field as set.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// Ptr returns nil for an explicit null and a pointer to the value otherwise.
func (f Field[T]) Ptr() *T {
	if f.Null {
		return nil
	}
	v := f.Value
	return &v
}

func (f Field[T]) apply(dst **T) {
	if f.Set {
		*dst = f.Ptr()
	}
}
