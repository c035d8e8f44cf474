package archive

import (
	"context"
	"errors"
)

// Archiver stores finished transcript artifacts under a name relative to its configured root.
type Archiver interface {
	Put(ctx context.Context, name string, body []byte, contentType string) error
}

// Noop discards everything. It stands in when no archive destination is configured.
type Noop struct{}

func (Noop) Put(context.Context, string, []byte, string) error {
	return nil
}

// Multi writes to every destination in order. All destinations are attempted; their errors are joined.
type Multi []Archiver

func (m Multi) Put(ctx context.Context, name string, body []byte, contentType string) error {
	var errs []error
	for _, a := range m {
		if err := a.Put(ctx, name, body, contentType); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
