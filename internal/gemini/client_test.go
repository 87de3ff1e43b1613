package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kol-studio/internal/asset"
	"kol-studio/internal/prompt"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	opts.APIKey = "test-key"
	opts.HTTPClient = srv.Client()
	return New(opts)
}

func imageReply(n int) string {
	var cands []string
	for i := 0; i < n; i++ {
		cands = append(cands, `{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"SU1H"}}]}}`)
	}
	return `{"candidates":[` + strings.Join(cands, ",") + `]}`
}

func TestGenerateImagesScenario(t *testing.T) {
	var got generateContentRequest
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(imageReply(2)))
	}, Options{})

	instruction := "- Bối cảnh: Bãi biển Đà Nẵng.\n- Tư thế: Đứng thẳng, tay buông tự nhiên."
	face := asset.LockedFace{Base64: "RkFDRQ==", MimeType: "image/jpeg"}
	images, err := client.GenerateImages(context.Background(), ImageRequest{
		Instruction: instruction,
		Identity:    &face,
		References:  []asset.LockedFace{{Base64: "T1VURklU", MimeType: "image/png"}},
		Count:       2,
		AspectRatio: "Dọc (9:16)",
		Model:       ModelImageFast,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 2 {
		t.Fatalf("want 2 images, got %d", len(images))
	}
	if images[0] != "data:image/png;base64,SU1H" {
		t.Fatalf("unexpected payload %q", images[0])
	}

	if path != "/v1beta/models/"+ModelImageFast+":generateContent" {
		t.Fatalf("unexpected path %s", path)
	}
	if got.GenerationConfig.CandidateCount != 2 {
		t.Fatalf("want candidateCount 2, got %d", got.GenerationConfig.CandidateCount)
	}
	if got.GenerationConfig.ImageConfig == nil || got.GenerationConfig.ImageConfig.AspectRatio != "9:16" {
		t.Fatalf("unexpected image config %+v", got.GenerationConfig.ImageConfig)
	}
	parts := got.Contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("want text + 2 images, got %d parts", len(parts))
	}
	if parts[0].Text != prompt.WithSafety(instruction) {
		t.Fatal("instruction must carry the safety block exactly once")
	}
	if parts[1].InlineData.Data != "RkFDRQ==" || parts[2].InlineData.Data != "T1VURklU" {
		t.Fatal("identity must be transmitted before references")
	}
}

func TestGenerateImagesClampsProCount(t *testing.T) {
	var count int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateContentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		count = req.GenerationConfig.CandidateCount
		w.Write([]byte(imageReply(1)))
	}, Options{})

	images, err := client.GenerateImages(context.Background(), ImageRequest{Instruction: "x", Count: 4, Model: ModelImagePro})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || len(images) != 1 {
		t.Fatalf("want exactly 1 requested output, got count=%d images=%d", count, len(images))
	}
}

func TestGenerateImagesRetryExhaustion(t *testing.T) {
	var hits atomic.Int32
	var mu sync.Mutex
	var sleeps []time.Duration
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}, Options{Sleep: func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
		return nil
	}})

	_, err := client.GenerateImages(context.Background(), ImageRequest{Instruction: "x"})
	if !IsTransient(err) {
		t.Fatalf("want transient error, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("want 3 attempts, got %d", hits.Load())
	}
	var total time.Duration
	for _, d := range sleeps {
		total += d
	}
	if len(sleeps) != 2 || sleeps[0] != 2*time.Second || sleeps[1] != 4*time.Second || total < 6*time.Second {
		t.Fatalf("unexpected back-off %v", sleeps)
	}
}

func TestGenerateImagesPolicyRejectionNotRetried(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I can't help with that."}]},"finishReason":"SAFETY"}]}`))
	}, Options{})

	_, err := client.GenerateImages(context.Background(), ImageRequest{Instruction: "x"})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("want ErrNoImage, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("policy rejection must not be retried, got %d attempts", hits.Load())
	}
}

func TestGenerateImagesNonTransientPropagates(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"error":{"status":"INVALID_ARGUMENT"}}`, http.StatusBadRequest)
	}, Options{})

	_, err := client.GenerateImages(context.Background(), ImageRequest{Instruction: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 APIError, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("want 1 attempt, got %d", hits.Load())
	}
}

func TestGenerateImagesCancelled(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}, Options{})
	// Runs before the server's Close, which waits for this handler.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.GenerateImages(ctx, ImageRequest{Instruction: "x"})
	if !IsCancelled(err) {
		t.Fatalf("want cancellation, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatal("cancellation should wrap the context error")
	}
}

func TestGenerateImagesCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, Options{Sleep: func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}})

	_, err := client.GenerateImages(ctx, ImageRequest{Instruction: "x"})
	if !IsCancelled(err) {
		t.Fatalf("want cancellation, got %v", err)
	}
}

func TestNormalizeAspectRatio(t *testing.T) {
	cases := map[string]string{
		"Ngang (16:9)":          "16:9",
		"Dọc (9:16)":            "9:16",
		"3:4":                   "3:4",
		"Ngang Cực Rộng (21:9)": "1:1",
		"":                      "1:1",
		"Vuông":                 "1:1",
	}
	for in, want := range cases {
		if got := NormalizeAspectRatio(in); got != want {
			t.Fatalf("%q: want %s, got %s", in, want, got)
		}
	}
}

func TestGenerateJSON(t *testing.T) {
	var mime string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateContentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		mime = req.GenerationConfig.ResponseMimeType
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + "```json\\n[\\\"a\\\",\\\"b\\\"]\\n```" + `"}]}}]}`))
	}, Options{})

	var out []string
	if err := client.GenerateJSON(context.Background(), TextRequest{Prompt: "x", Model: ModelTextPro}, &out); err != nil {
		t.Fatal(err)
	}
	if mime != "application/json" {
		t.Fatalf("want json mode, got %q", mime)
	}
	if len(out) != 2 || out[0] != "a" {
		t.Fatalf("unexpected decode %v", out)
	}
}

func TestDecodeJSONStripsFences(t *testing.T) {
	var out []string
	if err := DecodeJSON("```json\n[\"a\",\"b\"]\n```", &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1] != "b" {
		t.Fatalf("out = %v", out)
	}

	for _, bad := range []string{"", "not json", "```\n```"} {
		if err := DecodeJSON(bad, &out); !errors.Is(err, ErrDecodeJSON) {
			t.Fatalf("%q: want ErrDecodeJSON, got %v", bad, err)
		}
	}
}
