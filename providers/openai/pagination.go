package openai

import (
	"context"
	"iter"
)

// Page is one page of a cursor-paginated list.
type Page[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
}

// paginate walks pages starting at after, passing each page's last ID as
// the next cursor. Iteration stops at the first error, which is yielded.
// idOf supplies the cursor when a server omits last_id.
func paginate[T any](
	ctx context.Context,
	after string,
	fetch func(ctx context.Context, after string) (*Page[T], error),
	idOf func(T) string,
) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		cursor := after
		for {
			page, err := fetch(ctx, cursor)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page.Data {
				if !yield(item, nil) {
					return
				}
			}
			if !page.HasMore || len(page.Data) == 0 {
				return
			}
			next := page.LastID
			if next == "" {
				next = idOf(page.Data[len(page.Data)-1])
			}
			if next == "" || next == cursor {
				return
			}
			cursor = next
		}
	}
}
