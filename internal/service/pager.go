package service

import (
	"context"
)

// Page is one fetched batch. Next is the cursor for the following fetch and
// is ignored once Done is set.
type Page[C, T any] struct {
	Items []T
	Next  C
	Done  bool
}

// Pager fetches the page that starts at cursor.
type Pager[C, T any] interface {
	FetchPage(ctx context.Context, cursor C) (Page[C, T], error)
}

// PageSink persists a page before the next one is requested.
type PageSink[C, T any] func(ctx context.Context, page Page[C, T]) error

// Paginate drives pager from cursor until a page reports Done, a fetch or
// sink fails, ctx ends, or stop reports true. Pages are strictly sequential.
// It returns the number of pages handed to sink.
func Paginate[C, T any](ctx context.Context, pager Pager[C, T], cursor C, sink PageSink[C, T], stop func() bool) (int, error) {
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		if stop != nil && stop() {
			return pages, nil
		}
		page, err := pager.FetchPage(ctx, cursor)
		if err != nil {
			return pages, err
		}
		if err := sink(ctx, page); err != nil {
			return pages, err
		}
		pages++
		if page.Done {
			return pages, nil
		}
		cursor = page.Next
	}
}

// offsetPage builds the page for plain limit/offset endpoints: a short or
// empty page is the last one.
func offsetPage[T any](items []T, offset, limit int) Page[int, T] {
	return Page[int, T]{
		Items: items,
		Next:  offset + len(items),
		Done:  len(items) < limit || len(items) == 0,
	}
}
