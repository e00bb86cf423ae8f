package pagination

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseDefaultsAndCaps(t *testing.T) {
	params, err := Parse(url.Values{}, Options{DefaultPageSize: 25, MaxPageSize: 100})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.PageSize != 25 {
		t.Fatalf("expected default page size 25, got %d", params.PageSize)
	}

	params, err = Parse(url.Values{"pageSize": {"500"}}, Options{DefaultPageSize: 25, MaxPageSize: 100})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.PageSize != 100 {
		t.Fatalf("expected page size capped at 100, got %d", params.PageSize)
	}
}

func TestParseRejectsInvalidPageSize(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-5"} {
		if _, err := Parse(url.Values{"pageSize": {raw}}, Options{}); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("pageSize %q: expected ErrInvalidPageSize, got %v", raw, err)
		}
	}
}

func TestParseRejectsMalformedToken(t *testing.T) {
	if _, err := Parse(url.Values{"pageToken": {"not base64!!"}}, Options{}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := EncodeToken(Cursor{Offset: 40})
	if err != nil {
		t.Fatalf("EncodeToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	cursor, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	if cursor.Offset != 40 {
		t.Fatalf("expected offset 40, got %d", cursor.Offset)
	}

	if token, err := EncodeToken(Cursor{}); err != nil || token != "" {
		t.Fatalf("expected empty token for zero cursor, got %q err %v", token, err)
	}
}

func TestPageWalksWholeSet(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	params := Params{PageSize: 3}

	var collected []int
	for {
		page, next, err := Page(items, params)
		if err != nil {
			t.Fatalf("Page: %v", err)
		}
		collected = append(collected, page...)
		if next == "" {
			break
		}
		cursor, err := DecodeToken(next)
		if err != nil {
			t.Fatalf("DecodeToken: %v", err)
		}
		params.Cursor = cursor
	}

	if len(collected) != len(items) {
		t.Fatalf("expected %d items across pages, got %d", len(items), len(collected))
	}
	for i, v := range collected {
		if v != items[i] {
			t.Fatalf("expected stable ordering, got %v", collected)
		}
	}
}

func TestPageBeyondEndReturnsEmpty(t *testing.T) {
	page, next, err := Page([]string{"a"}, Params{PageSize: 10, Cursor: Cursor{Offset: 5}})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 0 || next != "" {
		t.Fatalf("expected empty page, got %v next %q", page, next)
	}
}
