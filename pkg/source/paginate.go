package source

import (
	"context"
	"fmt"

	"github.com/user/vulncorr/pkg/record"
)

// PageFunc fetches up to amount records starting at startID.
type PageFunc func(ctx context.Context, startID, amount int) ([]record.Record, error)

// Paginate calls fetch with an advancing offset and concatenates the pages.
// Pagination ends on the first page with fewer than pageSize+1 records, so
// a page of exactly pageSize records is the last one. Only a page longer
// than requested advances the offset by pageSize for another fetch.
func Paginate(ctx context.Context, startID, pageSize int, fetch PageFunc) ([]record.Record, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	var all []record.Record
	offset := startID
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("page at %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < pageSize+1 {
			return all, nil
		}
		offset += pageSize
	}
}
