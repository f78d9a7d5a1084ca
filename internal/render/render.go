// Package render turns aggregate rows into output artifacts: bubble
// charts written as standalone HTML files and plain terminal tables.
package render

import (
	"errors"

	"github.com/anstrom/scanparser/internal/stats"
)

//go:generate mockgen -source=render.go -destination=mocks/mock_renderer.go -package=mocks

// Renderer consumes the rows of one dimension.
type Renderer interface {
	Render(dim stats.Dimension, rows []stats.Row) error
}

// Multi fans out to several renderers and joins their errors.
type Multi []Renderer

// Render calls every renderer, even after one fails.
func (m Multi) Render(dim stats.Dimension, rows []stats.Row) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(dim, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards everything.
type Nop struct{}

// Render implements Renderer.
func (Nop) Render(stats.Dimension, []stats.Row) error { return nil }
