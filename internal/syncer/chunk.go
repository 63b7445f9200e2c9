package syncer

import "context"

// DefaultChunkSize bounds the number of records per bulk store operation.
// Exists to respect store-side statement and parameter limits, not for
// transactional isolation: chunks are independent operations, and a failure
// partway leaves earlier chunks committed.
const DefaultChunkSize = 50

// chunks splits items into consecutive slices of at most size elements.
func chunks[E any](items []E, size int) [][]E {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][]E
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// chunkedCreate issues one bulk create per chunk, in order.
func chunkedCreate[T any](ctx context.Context, store Store[T], recs []*T, size int) error {
	for _, chunk := range chunks(recs, size) {
		if err := store.BulkCreate(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// chunkedLookup retrieves records by field value in chunks, concatenating
// per-chunk results in chunk order. Element order within each chunk is
// store-defined.
func chunkedLookup[T any](ctx context.Context, store Store[T], field string, values []string, size int) ([]*T, error) {
	var out []*T
	for _, chunk := range chunks(values, size) {
		recs, err := store.FilterByFieldIn(ctx, field, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}
