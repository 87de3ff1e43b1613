package variation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kol-studio/internal/asset"
	"kol-studio/internal/gemini"
	"kol-studio/internal/prompt"
)

var ErrIdentityRequired = errors.New("a locked face is required to create variations")

const fallbackPrompt = "Prompt biến thể"

type ImageGenerator interface {
	GenerateImages(ctx context.Context, req gemini.ImageRequest) ([]string, error)
}

type TextGenerator interface {
	GenerateJSON(ctx context.Context, req gemini.TextRequest, out any) error
}

type Result struct {
	Source     asset.LibraryAsset   `json:"source"`
	Variations []asset.LibraryAsset `json:"variations"`
}

type Options struct {
	Images ImageGenerator
	Text   TextGenerator
	Logger *slog.Logger
	Now    func() time.Time
}

type Pipeline struct {
	images ImageGenerator
	text   TextGenerator
	logger *slog.Logger
	now    func() time.Time
}

func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{images: opts.Images, text: opts.Text, logger: logger, now: now}
}

// Generate synthesizes creative directions for source and renders one image
// per direction. One failed render fails the whole call.
func (p *Pipeline) Generate(ctx context.Context, source asset.LibraryAsset, identity *asset.LockedFace) (Result, error) {
	if identity == nil || identity.IsZero() {
		return Result{}, ErrIdentityRequired
	}
	face := *identity

	sourceImage, err := asset.FromDataURL(source.Src)
	if err != nil {
		return Result{}, fmt.Errorf("source image: %w", err)
	}

	directions, err := p.directions(ctx, source.Prompt, sourceImage)
	if err != nil {
		return Result{}, err
	}

	outputs := make([]string, len(directions))
	g, gctx := errgroup.WithContext(ctx)
	for i, direction := range directions {
		g.Go(func() error {
			images, err := p.images.GenerateImages(gctx, gemini.ImageRequest{
				Instruction: prompt.VariationInstruction(direction),
				Identity:    &face,
				References:  []asset.LockedFace{sourceImage},
				Count:       1,
			})
			if err != nil {
				return fmt.Errorf("variation %d: %w", i+1, err)
			}
			outputs[i] = images[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	ts := p.now()
	variations := make([]asset.LibraryAsset, len(outputs))
	for i, src := range outputs {
		text := fallbackPrompt
		if i < len(directions) {
			text = directions[i]
		}
		variations[i] = asset.LibraryAsset{
			ID:          asset.NewID("var_"+source.ID, ts, i),
			Src:         src,
			Prompt:      text,
			InputImages: []asset.LockedFace{face, sourceImage},
			Type:        asset.TypeKOL,
		}
	}

	p.logger.Info("variations generated", "source_id", source.ID, "count", len(variations))
	return Result{Source: source, Variations: variations}, nil
}

// directions never returns an empty list. An unreadable or empty reply
// falls back to the fixed set; upstream failures are returned.
func (p *Pipeline) directions(ctx context.Context, originalPrompt string, image asset.LockedFace) ([]string, error) {
	var out []string
	err := p.text.GenerateJSON(ctx, gemini.TextRequest{
		Model:  gemini.ModelTextPro,
		Prompt: prompt.VariationSynthesis(originalPrompt),
		Images: []asset.LockedFace{image},
	}, &out)
	if err != nil {
		if !errors.Is(err, gemini.ErrDecodeJSON) {
			return nil, fmt.Errorf("synthesize directions: %w", err)
		}
		p.logger.Warn("variation synthesis unreadable, using fallback directions", "err", err)
		return append([]string(nil), prompt.FallbackDirections...), nil
	}

	cleaned := make([]string, 0, len(out))
	for _, d := range out {
		if d = strings.TrimSpace(d); d != "" {
			cleaned = append(cleaned, d)
		}
	}
	if len(cleaned) == 0 {
		return append([]string(nil), prompt.FallbackDirections...), nil
	}
	return cleaned, nil
}
