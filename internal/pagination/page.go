package pagination

// Page is one window of a cursor-paginated list. A nil cursor means there is
// no page in that direction.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
	PrevCursor *string `json:"prev_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// Window turns the rows of a keyset query into a Page. rows must hold up to
// req.Limit+1 items in query order: DESC for forward requests, ASC for
// backward ones.
func Window[T any](rows []T, req Request, key func(T) Cursor) Page[T] {
	req = req.Normalize()
	hadCursor := req.Cursor != ""

	hasMore := len(rows) > req.Limit
	if hasMore {
		rows = rows[:req.Limit]
	}

	backward := req.Direction == Backward && hadCursor
	if backward {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	page := Page[T]{Items: rows, HasMore: hasMore}
	if page.Items == nil {
		page.Items = []T{}
	}
	if len(rows) == 0 {
		return page
	}

	first := Encode(key(rows[0]))
	last := Encode(key(rows[len(rows)-1]))
	if backward {
		page.NextCursor = &last
		if hasMore {
			page.PrevCursor = &first
		}
	} else {
		if hasMore {
			page.NextCursor = &last
		}
		if hadCursor {
			page.PrevCursor = &first
		}
	}
	return page
}
