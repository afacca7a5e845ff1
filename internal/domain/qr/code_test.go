package qr_test

import (
	"testing"

	"github.com/booksexchange/booksexchange-api/internal/domain/qr"
)

func TestParseCode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			"bare permanent id",
			"3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a",
			"3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a",
		},
		{
			"bare qr code id",
			"book_a1b2c3d4e5f6",
			"book_a1b2c3d4e5f6",
		},
		{
			"full scan url",
			"https://booksexchange.app/books/3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a/history",
			"3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a",
		},
		{
			"scan url with query string",
			"https://booksexchange.app/books/3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a/history?utm_source=qr&v=2",
			"3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a",
		},
		{
			"scan url with fragment",
			"https://booksexchange.app/books/3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a/history#timeline",
			"3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a",
		},
		{
			"scan url with trailing slash",
			"https://booksexchange.app/books/3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a/history/",
			"3f2c8a9e-1b4d-4c6f-9e2a-7d5b3c1f8e6a",
		},
		{
			"foreign url falls back to last segment",
			"https://booksexchange.app/qr/book_a1b2c3d4e5f6",
			"book_a1b2c3d4e5f6",
		},
		{
			"surrounding whitespace",
			"  book_a1b2c3d4e5f6\n",
			"book_a1b2c3d4e5f6",
		},
		{
			"empty input",
			"",
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := qr.ParseCode(tc.raw); got != tc.want {
				t.Errorf("ParseCode(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
