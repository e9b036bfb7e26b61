package pagination

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/messages", nil)

	params, err := Parse(req, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, params.Limit)
	}
	if params.Offset != 0 {
		t.Errorf("expected zero offset, got %d", params.Offset)
	}
}

func TestParseCapsLimit(t *testing.T) {
	req := httptest.NewRequest("GET", "/messages?limit=500&offset=20", nil)

	params, err := Parse(req, Options{MaxLimit: 100})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Limit != 100 {
		t.Errorf("expected capped limit 100, got %d", params.Limit)
	}
	if params.Offset != 20 {
		t.Errorf("expected offset 20, got %d", params.Offset)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	req := httptest.NewRequest("GET", "/messages?limit=abc", nil)
	if _, err := Parse(req, Options{}); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}

	req = httptest.NewRequest("GET", "/messages?offset=-3", nil)
	if _, err := Parse(req, Options{}); !errors.Is(err, ErrInvalidOffset) {
		t.Fatalf("expected ErrInvalidOffset, got %v", err)
	}

	req = httptest.NewRequest("GET", "/messages?limit=0", nil)
	if _, err := Parse(req, Options{}); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit for zero, got %v", err)
	}
}

func TestClamp(t *testing.T) {
	params := Clamp(0, -5, 0)
	if params.Limit != DefaultLimit || params.Offset != 0 {
		t.Fatalf("unexpected params %+v", params)
	}
	params = Clamp(90, 10, 40)
	if params.Limit != 40 || params.Offset != 10 {
		t.Fatalf("unexpected params %+v", params)
	}
}
