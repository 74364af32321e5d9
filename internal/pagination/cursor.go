// Package pagination implements keyset (cursor) pagination shared by the
// applications API and its clients. Cursors are opaque to everything outside
// this package: callers only pass them back unmodified.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var (
	ErrInvalidCursor    = errors.New("invalid cursor")
	ErrInvalidDirection = errors.New("direction must be 'forward' or 'backward'")
	ErrInvalidLimit     = fmt.Errorf("limit must be between 1 and %d", MaxLimit)
)

// Direction selects which neighbour page a cursor refers to.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// ParseDirection accepts "", "forward" and "backward". Empty means forward.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Forward:
		return Forward, nil
	case Backward:
		return Backward, nil
	}
	return "", ErrInvalidDirection
}

// Cursor is a position in a list ordered by (created_at DESC, id DESC).
type Cursor struct {
	CreatedAt time.Time `json:"c"`
	ID        string    `json:"i"`
}

// Encode returns the opaque token for c.
func Encode(c Cursor) string {
	data, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(data)
}

// Decode parses a token produced by Encode.
func Decode(token string) (Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad encoding", ErrInvalidCursor)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: bad format", ErrInvalidCursor)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return Cursor{}, fmt.Errorf("%w: missing fields", ErrInvalidCursor)
	}
	return c, nil
}

// Request is one listing request: {status, cursor?, direction?, limit?}.
type Request struct {
	Status    string
	Cursor    string
	Direction Direction
	Limit     int
}

// Normalize applies defaults. A request without a cursor always asks for
// the first page in forward order, whatever direction was given.
func (r Request) Normalize() Request {
	if r.Cursor == "" || r.Direction == "" {
		r.Direction = Forward
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	return r
}

// Values encodes r as query parameters, omitting empty fields.
func (r Request) Values() url.Values {
	v := url.Values{}
	if r.Status != "" {
		v.Set("status", r.Status)
	}
	if r.Cursor != "" {
		v.Set("cursor", r.Cursor)
		if r.Direction != "" {
			v.Set("direction", string(r.Direction))
		}
	}
	if r.Limit > 0 {
		v.Set("limit", strconv.Itoa(r.Limit))
	}
	return v
}

// ParseRequest decodes query parameters, validating cursor, direction and
// limit. Status is returned as-is; its vocabulary belongs to the caller.
func ParseRequest(q url.Values) (Request, *Cursor, error) {
	req := Request{Status: q.Get("status"), Cursor: q.Get("cursor")}

	dir, err := ParseDirection(q.Get("direction"))
	if err != nil {
		return Request{}, nil, err
	}
	req.Direction = dir

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxLimit {
			return Request{}, nil, ErrInvalidLimit
		}
		req.Limit = n
	}

	var cur *Cursor
	if req.Cursor != "" {
		c, err := Decode(req.Cursor)
		if err != nil {
			return Request{}, nil, err
		}
		cur = &c
	}
	return req.Normalize(), cur, nil
}
