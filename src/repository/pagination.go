package repository

// SortDirection matches the values the store expects for sort specs.
type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

// PaginationWindow selects one page of a filtered query. It is derived per
// request and never persisted.
type PaginationWindow struct {
	Skip          int64
	Limit         int64
	SortField     string
	SortDirection SortDirection
}

// DefaultPagination is used when a request does not specify a window:
// first 20 documents, newest first.
func DefaultPagination() PaginationWindow {
	return PaginationWindow{
		Skip:          0,
		Limit:         20,
		SortField:     FieldCreatedAt,
		SortDirection: Descending,
	}
}

// Normalize clamps nonsensical values back to the defaults.
func (w PaginationWindow) Normalize() PaginationWindow {
	if w.Skip < 0 {
		w.Skip = 0
	}
	if w.Limit <= 0 {
		w.Limit = 20
	}
	if w.SortField == "" {
		w.SortField = FieldCreatedAt
	}
	if w.SortDirection != Ascending && w.SortDirection != Descending {
		w.SortDirection = Descending
	}
	return w
}

// PaginatedResult is one page of matching documents plus the metadata a
// client needs to walk the rest.
type PaginatedResult struct {
	Items       []Document `json:"items"`
	Skip        int64      `json:"skip"`
	Limit       int64      `json:"limit"`
	Total       int64      `json:"total"`
	HasNext     bool       `json:"hasNext"`
	HasPrevious bool       `json:"hasPrevious"`
}

// NewPaginatedResult computes the page metadata from the window and the
// total count of matching documents.
func NewPaginatedResult(items []Document, window PaginationWindow, total int64) *PaginatedResult {
	if items == nil {
		items = []Document{}
	}
	return &PaginatedResult{
		Items:       items,
		Skip:        window.Skip,
		Limit:       window.Limit,
		Total:       total,
		HasNext:     window.Skip+window.Limit < total,
		HasPrevious: window.Skip > 0,
	}
}
