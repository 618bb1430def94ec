package store

import "context"

// Unconfigured is the driver installed when no backend could be initialized.
// Every operation short-circuits with ErrNotConfigured so pages can surface
// a single configuration error instead of hanging on a dead connection.
type Unconfigured struct{}

func (Unconfigured) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	return ErrNotConfigured
}

func (Unconfigured) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return ErrNotConfigured
}

func (Unconfigured) Query(ctx context.Context, q Query) ([]Document, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Subscribe(ctx context.Context, q Query, deliver func(Snapshot)) (CancelFunc, error) {
	return nil, ErrNotConfigured
}
