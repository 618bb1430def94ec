package store

import (
	"context"
	"fmt"
	"time"
)

// Filter is an equality constraint on a document field.
type Filter struct {
	Field string
	Value any
}

// Order sorts a result set by a single field.
type Order struct {
	Field string
	Desc  bool
}

// Query describes a one-shot or standing read against a named collection.
type Query struct {
	Collection string
	Filters    []Filter
	Order      *Order
	Limit      int64
}

// Document is a raw record as the store holds it. Typed decoding happens at
// the subscription/query boundary in the domain packages.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is the complete current result set for a subscribed query,
// delivered atomically, or the error that terminated the subscription.
type Snapshot struct {
	Docs []Document
	Err  error
}

// CancelFunc releases a standing subscription. Safe to call more than once.
type CancelFunc func()

// Store is the document-store contract the rest of the application consumes.
// Subscribe delivers an initial snapshot and then a new full snapshot after
// every remote mutation matching the query; it never delivers diffs.
type Store interface {
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	Put(ctx context.Context, collection, id string, fields map[string]any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Query(ctx context.Context, q Query) ([]Document, error)
	Subscribe(ctx context.Context, q Query, deliver func(Snapshot)) (CancelFunc, error)
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter { return Filter{Field: field, Value: value} }

// Asc and Desc build orderings.
func Asc(field string) *Order  { return &Order{Field: field} }
func Desc(field string) *Order { return &Order{Field: field, Desc: true} }

// Field accessors used by domain decoders. A missing field or a wrong type
// fails the decode instead of silently producing a zero value.

func (d Document) StringField(name string) (string, error) {
	v, ok := d.Fields[name]
	if !ok {
		return "", fmt.Errorf("field %q missing", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", name, v)
	}
	return s, nil
}

// OptionalStringField returns "" when the field is absent but still rejects
// a present value of the wrong type.
func (d Document) OptionalStringField(name string) (string, error) {
	v, ok := d.Fields[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", name, v)
	}
	return s, nil
}

func (d Document) BoolField(name string) (bool, error) {
	v, ok := d.Fields[name]
	if !ok {
		return false, fmt.Errorf("field %q missing", name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q: expected bool, got %T", name, v)
	}
	return b, nil
}

func (d Document) IntField(name string) (int64, error) {
	v, ok := d.Fields[name]
	if !ok {
		return 0, fmt.Errorf("field %q missing", name)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("field %q: expected integer, got %T", name, v)
	}
}

func (d Document) TimeField(name string) (time.Time, error) {
	v, ok := d.Fields[name]
	if !ok {
		return time.Time{}, fmt.Errorf("field %q missing", name)
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case primitiveDateTime:
		return t.Time(), nil
	default:
		return time.Time{}, fmt.Errorf("field %q: expected timestamp, got %T", name, v)
	}
}

// primitiveDateTime lets TimeField accept BSON datetimes without the store
// package leaking driver types into domain decoders.
type primitiveDateTime interface{ Time() time.Time }
