package asset

import (
	"testing"
	"time"
)

func TestKindInference(t *testing.T) {
	cases := []struct {
		a    LibraryAsset
		want Type
	}{
		{LibraryAsset{ID: "a"}, TypeKOL},
		{LibraryAsset{ID: "b", VideoSrc: "blob"}, TypeVideo},
		{LibraryAsset{ID: "c", Type: TypeOutfit, VideoSrc: "blob"}, TypeOutfit},
	}
	for _, c := range cases {
		if got := c.a.Kind(); got != c.want {
			t.Fatalf("%s: want %q, got %q", c.a.ID, c.want, got)
		}
	}
}

func TestValidateVideoNeedsSource(t *testing.T) {
	a := LibraryAsset{ID: "v", VideoSrc: "data:video/mp4;base64,AAAA"}
	if err := a.Validate(); err != ErrVideoWithoutSource {
		t.Fatalf("want ErrVideoWithoutSource, got %v", err)
	}
	a.Src = "data:image/png;base64,AAAA"
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFromDataURL(t *testing.T) {
	f, err := FromDataURL("data:image/jpeg;base64,QUJD")
	if err != nil {
		t.Fatal(err)
	}
	if f.MimeType != "image/jpeg" || f.Base64 != "QUJD" {
		t.Fatalf("unexpected face %+v", f)
	}
	if f.DataURL() != "data:image/jpeg;base64,QUJD" {
		t.Fatalf("round trip mismatch: %s", f.DataURL())
	}

	raw, err := FromDataURL("QUJD")
	if err != nil {
		t.Fatal(err)
	}
	if raw.MimeType != "image/png" {
		t.Fatalf("want png fallback, got %q", raw.MimeType)
	}

	if _, err := FromDataURL("data:image/png;base64"); err == nil {
		t.Fatal("want error for data url without payload separator")
	}
}

func TestNewID(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	if got := NewID("var_src", ts, 2); got != "var_src_1700000000123_2" {
		t.Fatalf("got %q", got)
	}
	if got := NewStampID("vid", ts); got != "vid_1700000000123" {
		t.Fatalf("got %q", got)
	}
}
