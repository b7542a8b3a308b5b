package reconcile

import (
	"fmt"
	"io"
	"sync"
)

// Printer serialises writes from several text views onto one writer. The
// dashboard loads its collections concurrently; without the shared lock
// their lines would interleave.
//
// OUTPUT FORMAT:
//
//	trips (2, server)
//	  - Spring in Kyoto (Kyoto) 2026-04-01..2026-04-08
//	  - Lisbon weekend (Lisbon) 2026-02-13..2026-02-15
//	wishlist (0, cache)
//	  (none)
//	! hotels: could not load hotels (api: 503 service_unavailable)
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter writes to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

type textView[T any] struct {
	p      *Printer
	format func(T) string
}

// TextView renders a collection as an indented list, one item per line.
func TextView[T any](p *Printer, format func(T) string) View[T] {
	return &textView[T]{p: p, format: format}
}

func (v *textView[T]) Render(collection string, items []T, source Source) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()

	fmt.Fprintf(v.p.w, "%s (%d, %s)\n", collection, len(items), source)
	if len(items) == 0 {
		fmt.Fprintln(v.p.w, "  (none)")
		return
	}
	for _, it := range items {
		fmt.Fprintf(v.p.w, "  - %s\n", v.format(it))
	}
}

// Notify prints one line: "!" for errors, "i" for information.
func (v *textView[T]) Notify(n Notice) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()

	prefix := "i"
	if n.Level == LevelError {
		prefix = "!"
	}
	if n.Err != nil {
		fmt.Fprintf(v.p.w, "%s %s: %s (%v)\n", prefix, n.Collection, n.Message, n.Err)
		return
	}
	fmt.Fprintf(v.p.w, "%s %s: %s\n", prefix, n.Collection, n.Message)
}
