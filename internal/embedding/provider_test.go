// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package embedding

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short string untouched", in: "hello", max: 10, want: "hello"},
		{name: "exact length untouched", in: "hello", max: 5, want: "hello"},
		{name: "ascii truncated", in: "hello world", max: 5, want: "hello"},
		{name: "empty string", in: "", max: 5, want: ""},
		{
			name: "multi-byte runes counted as one",
			in:   "日本語のテキスト",
			max:  3,
			want: "日本語",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.in, tt.max); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateRunesKeepsValidUTF8(t *testing.T) {
	// A long multi-byte tail must never be cut mid-rune.
	in := strings.Repeat("a", maxInputChars-1) + strings.Repeat("é", 100)

	got := truncateRunes(in, maxInputChars)
	if !utf8.ValidString(got) {
		t.Fatal("truncated text is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != maxInputChars {
		t.Errorf("rune count = %d, want %d", n, maxInputChars)
	}
}
