package variation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kol-studio/internal/asset"
	"kol-studio/internal/gemini"
)

type fakeText struct {
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeText) GenerateJSON(ctx context.Context, req gemini.TextRequest, out any) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	return gemini.DecodeJSON(f.reply, out)
}

// fakeImages finishes calls in reverse direction order.
type fakeImages struct {
	mu       sync.Mutex
	calls    int
	requests []gemini.ImageRequest
	fail     string
	release  map[string]chan struct{}
}

func (f *fakeImages) GenerateImages(ctx context.Context, req gemini.ImageRequest) ([]string, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.fail != "" && strings.Contains(req.Instruction, f.fail) {
		return nil, gemini.ErrNoImage
	}
	if ch, ok := f.release[lastLine(req.Instruction)]; ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []string{"data:image/png;base64," + lastLine(req.Instruction)}, nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "**KỊCH BẢN:** ")
	return lines[len(lines)-1]
}

var source = asset.LibraryAsset{ID: "kol_1_0", Src: "data:image/jpeg;base64,U1JD", Prompt: "gốc"}

func fixedNow() time.Time { return time.UnixMilli(1700000000000) }

func TestGenerateRequiresIdentity(t *testing.T) {
	text := &fakeText{reply: `["a"]`}
	images := &fakeImages{}
	p := New(Options{Images: images, Text: text})

	_, err := p.Generate(context.Background(), source, nil)
	if !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("want ErrIdentityRequired, got %v", err)
	}
	if text.calls.Load() != 0 || images.calls != 0 {
		t.Fatal("no network call may be issued without an identity")
	}
}

func TestGenerateKeepsDirectionOrder(t *testing.T) {
	release := map[string]chan struct{}{"A": make(chan struct{}), "B": make(chan struct{}), "C": make(chan struct{})}
	images := &fakeImages{release: release}
	p := New(Options{Images: images, Text: &fakeText{reply: `["A","B","C"]`}, Now: fixedNow})

	go func() {
		close(release["C"])
		time.Sleep(10 * time.Millisecond)
		close(release["B"])
		time.Sleep(10 * time.Millisecond)
		close(release["A"])
	}()

	face := asset.LockedFace{Base64: "RkFDRQ==", MimeType: "image/png"}
	res, err := p.Generate(context.Background(), source, &face)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Variations) != 3 {
		t.Fatalf("want 3 variations, got %d", len(res.Variations))
	}
	for i, want := range []string{"A", "B", "C"} {
		v := res.Variations[i]
		if v.Prompt != want || v.Src != "data:image/png;base64,"+want {
			t.Fatalf("variation %d out of order: %+v", i, v)
		}
		if v.ID != asset.NewID("var_kol_1_0", fixedNow(), i) {
			t.Fatalf("unexpected id %s", v.ID)
		}
		if len(v.InputImages) != 2 || v.InputImages[0] != face || v.InputImages[1].Base64 != "U1JD" {
			t.Fatalf("unexpected input images %+v", v.InputImages)
		}
		if v.Type != asset.TypeKOL {
			t.Fatalf("want kol type, got %s", v.Type)
		}
	}
	for _, req := range images.requests {
		if req.Identity == nil || *req.Identity != face || req.Count != 1 {
			t.Fatalf("unexpected request %+v", req)
		}
		if len(req.References) != 1 || req.References[0].MimeType != "image/jpeg" {
			t.Fatalf("source image must be the only reference: %+v", req.References)
		}
	}
}

func TestGenerateFallbackDirections(t *testing.T) {
	for _, text := range []*fakeText{{reply: `not json`}, {reply: `[]`}, {reply: "```json\n[\"  \"]\n```"}} {
		images := &fakeImages{}
		p := New(Options{Images: images, Text: text})
		face := asset.LockedFace{Base64: "RkFDRQ=="}
		res, err := p.Generate(context.Background(), source, &face)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Variations) != 4 || res.Variations[0].Prompt != "Biến thể ánh sáng" {
			t.Fatalf("fallback directions not used: %+v", res.Variations)
		}
	}
}

func TestGenerateUpstreamErrorSkipsImages(t *testing.T) {
	upstream := &gemini.APIError{StatusCode: 429, Status: "429 Too Many Requests", Body: "RESOURCE_EXHAUSTED"}
	images := &fakeImages{}
	p := New(Options{Images: images, Text: &fakeText{err: upstream}})
	face := asset.LockedFace{Base64: "RkFDRQ=="}

	res, err := p.Generate(context.Background(), source, &face)
	var apiErr *gemini.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 429 {
		t.Fatalf("want the upstream error, got %v", err)
	}
	if len(res.Variations) != 0 || images.calls != 0 {
		t.Fatalf("no image call may follow a failed synthesis: calls=%d", images.calls)
	}
}

func TestGenerateAllOrNothing(t *testing.T) {
	images := &fakeImages{fail: "B"}
	p := New(Options{Images: images, Text: &fakeText{reply: `["A","B","C"]`}})
	face := asset.LockedFace{Base64: "RkFDRQ=="}

	res, err := p.Generate(context.Background(), source, &face)
	if !errors.Is(err, gemini.ErrNoImage) {
		t.Fatalf("want ErrNoImage, got %v", err)
	}
	if len(res.Variations) != 0 {
		t.Fatal("no partial result may be returned")
	}
}
