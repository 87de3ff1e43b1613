package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitByBytesKeepsRunes(t *testing.T) {
	text := strings.Repeat("ệ", 3000)
	parts := splitByBytes(text, 4096)
	if len(parts) != 3 {
		t.Fatalf("parts = %d", len(parts))
	}
	for _, p := range parts {
		if len(p) > 4096 || !utf8.ValidString(p) {
			t.Fatal("part exceeds the limit or splits a rune")
		}
	}
	if strings.Join(parts, "") != text {
		t.Fatal("parts must join back to the input")
	}
}

func TestTruncateByBytes(t *testing.T) {
	got := truncateByBytes("Trang phục", 8)
	if !utf8.ValidString(got) || len(got) > 8 {
		t.Fatalf("got %q", got)
	}
}

func TestFileName(t *testing.T) {
	if got := fileName("video", "", ".mp4"); got != "video.mp4" {
		t.Fatalf("got %q", got)
	}
	if got := baseMime("image/png; charset=binary"); got != "image/png" {
		t.Fatalf("got %q", got)
	}
}
