package pagination

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoPage is returned by Next/Prev when the current page has no
	// cursor in that direction.
	ErrNoPage = errors.New("no page in that direction")
	// ErrSuperseded marks a response dropped because a newer request
	// was issued before it arrived.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// Fetcher loads one page. Implementations must honour ctx.
type Fetcher[T any] func(ctx context.Context, req Request) (Page[T], error)

// Pager holds the client-side state of a filtered, cursor-paginated list.
// Changing the status filter always restarts from the first page, so a
// cursor from one filter is never combined with another.
type Pager[T any] struct {
	fetch Fetcher[T]
	limit int

	mu      sync.Mutex
	status  string
	page    Page[T]
	loading bool
	err     error
	seq     uint64
}

// PagerState is a snapshot for rendering.
type PagerState[T any] struct {
	Status  string
	Page    Page[T]
	Loading bool
	Err     error
}

// NewPager creates a pager. limit <= 0 uses DefaultLimit.
func NewPager[T any](fetch func(ctx context.Context, req Request) (Page[T], error), limit int) *Pager[T] {
	return &Pager[T]{fetch: fetch, limit: limit}
}

// State returns a copy of the current state.
func (p *Pager[T]) State() PagerState[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PagerState[T]{Status: p.status, Page: p.page, Loading: p.loading, Err: p.err}
}

// CanNext reports whether a following page exists.
func (p *Pager[T]) CanNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page.NextCursor != nil
}

// CanPrev reports whether a preceding page exists.
func (p *Pager[T]) CanPrev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page.PrevCursor != nil
}

// SetStatus switches the filter and loads its first page.
func (p *Pager[T]) SetStatus(ctx context.Context, status string) error {
	p.mu.Lock()
	p.status = status
	p.page = Page[T]{}
	p.mu.Unlock()
	return p.First(ctx)
}

// First loads the first page for the current filter, ignoring any cursor.
func (p *Pager[T]) First(ctx context.Context) error {
	p.mu.Lock()
	req := Request{Status: p.status}
	p.mu.Unlock()
	return p.load(ctx, req)
}

// Next loads the page after the current one.
func (p *Pager[T]) Next(ctx context.Context) error {
	p.mu.Lock()
	if p.page.NextCursor == nil {
		p.mu.Unlock()
		return ErrNoPage
	}
	req := Request{Status: p.status, Cursor: *p.page.NextCursor, Direction: Forward}
	p.mu.Unlock()
	return p.load(ctx, req)
}

// Prev loads the page before the current one.
func (p *Pager[T]) Prev(ctx context.Context) error {
	p.mu.Lock()
	if p.page.PrevCursor == nil {
		p.mu.Unlock()
		return ErrNoPage
	}
	req := Request{Status: p.status, Cursor: *p.page.PrevCursor, Direction: Backward}
	p.mu.Unlock()
	return p.load(ctx, req)
}

func (p *Pager[T]) load(ctx context.Context, req Request) error {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.loading = true
	req.Limit = p.limit
	p.mu.Unlock()

	page, err := p.fetch(ctx, req.Normalize())

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		return ErrSuperseded
	}
	p.loading = false
	// Checked at apply time: the request may have been cancelled after
	// the response was already on its way.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		p.page = Page[T]{}
		p.err = err
		return err
	}
	p.page = page
	p.err = nil
	return nil
}
