package veo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kol-studio/internal/asset"
)

const (
	Model               = "veo-3.1-fast-generate-preview"
	defaultPollInterval = 5 * time.Second
)

var (
	ErrNoVideo     = errors.New("video generation returned no video")
	ErrEmptyPrompt = errors.New("video prompt is empty")
)

type Config struct {
	AspectRatio    string `json:"aspectRatio"`
	Resolution     string `json:"resolution"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
}

// Normalize keeps only the supported values, defaulting to 16:9 and 1080p.
func (c Config) Normalize() Config {
	if c.AspectRatio != "9:16" {
		c.AspectRatio = "16:9"
	}
	if c.Resolution != "720p" {
		c.Resolution = "1080p"
	}
	c.NegativePrompt = strings.TrimSpace(c.NegativePrompt)
	return c
}

// Operation is a long-running generation handle. Handle carries the
// backend's own operation value between polls.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Err      string
	Handle   any
}

type Backend interface {
	Start(ctx context.Context, prompt string, image asset.LockedFace, cfg Config) (*Operation, error)
	Poll(ctx context.Context, op *Operation) (*Operation, error)
}

type Video struct {
	URI      string
	MimeType string
	Data     []byte
}

func (v Video) DataURL() string {
	f := asset.FromBytes(v.Data, v.MimeType)
	return fmt.Sprintf("data:%s;base64,%s", f.MimeType, f.Base64)
}

type Options struct {
	APIKey       string
	Backend      Backend
	HTTPClient   *http.Client
	Logger       *slog.Logger
	PollInterval time.Duration
	Sleep        func(ctx context.Context, d time.Duration) error
}

type Service struct {
	apiKey       string
	backend      Backend
	httpClient   *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Service{
		apiKey:       opts.APIKey,
		backend:      opts.Backend,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: interval,
		sleep:        sleep,
	}
}

// Generate starts a video job, polls it to completion and downloads the result.
func (s *Service) Generate(ctx context.Context, prompt string, image asset.LockedFace, cfg Config) (Video, error) {
	if strings.TrimSpace(prompt) == "" {
		return Video{}, ErrEmptyPrompt
	}
	if image.IsZero() {
		return Video{}, errors.New("video source image is empty")
	}
	if s.backend == nil {
		return Video{}, errors.New("video backend is nil")
	}
	cfg = cfg.Normalize()

	op, err := s.backend.Start(ctx, prompt, image, cfg)
	if err != nil {
		return Video{}, fmt.Errorf("start video: %w", err)
	}
	s.logger.Info("video operation started", "operation", op.Name, "aspect_ratio", cfg.AspectRatio, "resolution", cfg.Resolution)

	for polls := 0; !op.Done; polls++ {
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return Video{}, err
		}
		op, err = s.backend.Poll(ctx, op)
		if err != nil {
			return Video{}, fmt.Errorf("poll video: %w", err)
		}
		s.logger.Debug("video operation polled", "operation", op.Name, "polls", polls+1, "done", op.Done)
	}

	if op.Err != "" {
		return Video{}, fmt.Errorf("video operation failed: %s", op.Err)
	}
	if op.VideoURI == "" {
		return Video{}, ErrNoVideo
	}
	return s.fetch(ctx, op.VideoURI)
}

func (s *Service) fetch(ctx context.Context, uri string) (Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, withKey(uri, s.apiKey), nil)
	if err != nil {
		return Video{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Video{}, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Video{}, fmt.Errorf("download video %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Video{}, fmt.Errorf("read video: %w", err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || strings.HasPrefix(mime, "application/octet-stream") {
		mime = "video/mp4"
	}
	return Video{URI: uri, MimeType: mime, Data: data}, nil
}

func withKey(uri, key string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "key=" + key
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
