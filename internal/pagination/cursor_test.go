package pagination

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestEncodeDecodeCursor(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2025, 3, 1, 12, 30, 0, 123456789, time.UTC), ID: "app-42"}
	got, err := Decode(Encode(want))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Errorf("Decode(Encode(c)) = %+v, want %+v", got, want)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!"},
		{"not json", "bm90IGpzb24="},
		{"missing id", Encode(Cursor{CreatedAt: time.Now()})},
		{"missing time", Encode(Cursor{ID: "x"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.token); !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("Decode(%q) err = %v, want ErrInvalidCursor", tt.token, err)
			}
		})
	}
}

func TestParseRequest(t *testing.T) {
	valid := Encode(Cursor{CreatedAt: time.Now().UTC(), ID: "a"})

	tests := []struct {
		name    string
		query   string
		wantErr error
		want    Request
	}{
		{"empty", "", nil, Request{Direction: Forward, Limit: DefaultLimit}},
		{"status only", "status=submitted", nil, Request{Status: "submitted", Direction: Forward, Limit: DefaultLimit}},
		{"backward without cursor is a first page", "direction=backward", nil, Request{Direction: Forward, Limit: DefaultLimit}},
		{"backward with cursor", "direction=backward&limit=10&cursor=" + valid, nil, Request{Cursor: valid, Direction: Backward, Limit: 10}},
		{"bad direction", "direction=sideways", ErrInvalidDirection, Request{}},
		{"limit too big", "limit=101", ErrInvalidLimit, Request{}},
		{"limit zero", "limit=0", ErrInvalidLimit, Request{}},
		{"limit not a number", "limit=ten", ErrInvalidLimit, Request{}},
		{"bad cursor", "cursor=zzz", ErrInvalidCursor, Request{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, cur, err := ParseRequest(q)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRequest(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
			if (cur != nil) != (tt.want.Cursor != "") {
				t.Errorf("decoded cursor presence mismatch: %v", cur)
			}
		})
	}
}

func TestRequestValuesRoundTrip(t *testing.T) {
	cursor := Encode(Cursor{CreatedAt: time.Now().UTC(), ID: "b"})
	req := Request{Status: "accepted", Cursor: cursor, Direction: Backward, Limit: 5}
	got, _, err := ParseRequest(req.Values())
	if err != nil {
		t.Fatal(err)
	}
	if got != req {
		t.Errorf("got %+v, want %+v", got, req)
	}

	// Direction is meaningless without a cursor and is not sent.
	if v := (Request{Direction: Backward}).Values(); v.Has("direction") {
		t.Errorf("direction sent without cursor: %v", v)
	}
}
