package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kol-studio/internal/asset"
	"kol-studio/internal/catalog"
	"kol-studio/internal/gemini"
	"kol-studio/internal/prompt"
)

type StrategyKind string

const (
	Channel   StrategyKind = "channel"
	Funnel    StrategyKind = "funnel"
	Offer     StrategyKind = "offer"
	Landing   StrategyKind = "landing"
	Affiliate StrategyKind = "affiliate"
)

var ErrInvalidStrategy = errors.New("invalid strategy input")

// StrategyInput carries the union of every kind's inputs. Only the fields
// listed for the kind are validated.
type StrategyInput struct {
	Kind        StrategyKind `json:"kind" validate:"required,oneof=channel funnel offer landing affiliate"`
	KOLName     string       `json:"kolName,omitempty"`
	Goal        string       `json:"goal,omitempty" validate:"required"`
	Platform    string       `json:"platform,omitempty" validate:"required"`
	Niche       string       `json:"niche,omitempty" validate:"required"`
	Product     string       `json:"product,omitempty" validate:"required"`
	Audience    string       `json:"audience,omitempty" validate:"required"`
	Price       string       `json:"price,omitempty" validate:"required"`
	Problem     string       `json:"problem,omitempty" validate:"required"`
	CTA         string       `json:"cta,omitempty" validate:"required"`
	Description string       `json:"description,omitempty" validate:"required"`
	USP         string       `json:"usp,omitempty" validate:"required"`
	Offer       string       `json:"offer,omitempty" validate:"required"`
}

var strategyFields = map[StrategyKind][]string{
	Channel:   {"Goal", "Platform", "Niche"},
	Funnel:    {"Product", "Audience", "Goal"},
	Offer:     {"Product", "Price", "Problem"},
	Landing:   {"Product", "Audience", "CTA"},
	Affiliate: {"Product", "Description", "USP", "Audience", "Offer", "Goal"},
}

var validate = validator.New()

func (in StrategyInput) trimmed() StrategyInput {
	for _, p := range []*string{&in.KOLName, &in.Goal, &in.Platform, &in.Niche, &in.Product, &in.Audience, &in.Price, &in.Problem, &in.CTA, &in.Description, &in.USP, &in.Offer} {
		*p = strings.TrimSpace(*p)
	}
	return in
}

func (in StrategyInput) Validate() error {
	in = in.trimmed()
	fields, ok := strategyFields[in.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidStrategy, in.Kind)
	}
	if err := validate.StructPartial(in, append([]string{"Kind"}, fields...)...); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s is required for %s", ErrInvalidStrategy, verrs[0].Field(), in.Kind)
		}
		return fmt.Errorf("%w: %v", ErrInvalidStrategy, err)
	}
	return nil
}

type TextGenerator interface {
	GenerateJSON(ctx context.Context, req gemini.TextRequest, out any) error
}

type ImageGenerator interface {
	GenerateImages(ctx context.Context, req gemini.ImageRequest) ([]string, error)
}

type Options struct {
	Text   TextGenerator
	Images ImageGenerator
	Logger *slog.Logger
	Now    func() time.Time
}

type Planner struct {
	text   TextGenerator
	images ImageGenerator
	logger *slog.Logger
	now    func() time.Time
}

func New(opts Options) *Planner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Planner{text: opts.Text, images: opts.Images, logger: logger, now: now}
}

// Calendar asks for a 4-week plan. Every returned row starts with default
// overrides and no generation state.
func (p *Planner) Calendar(ctx context.Context, in CalendarInput) ([]CalendarRow, error) {
	var reply []CalendarRow
	err := p.text.GenerateJSON(ctx, gemini.TextRequest{
		Model:             gemini.ModelTextPro,
		Prompt:            CalendarPrompt(in) + calendarFormat,
		SystemInstruction: calendarSystemInstruction,
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("content calendar: %w", err)
	}

	rows := make([]CalendarRow, 0, len(reply))
	for _, r := range reply {
		rows = append(rows, CalendarRow{
			Day:                   r.Day,
			ContentType:           r.ContentType,
			Description:           r.Description,
			CaptionTheme:          r.CaptionTheme,
			ImagePromptSuggestion: r.ImagePromptSuggestion,
			Overrides:             DefaultOverrides(),
		})
	}
	p.logger.Info("content calendar generated", "audience", in.Audience, "rows", len(rows))
	return rows, nil
}

func (p *Planner) Post(ctx context.Context, in PostInput) (Post, error) {
	var post Post
	err := p.text.GenerateJSON(ctx, gemini.TextRequest{
		Model:  gemini.ModelTextPro,
		Prompt: PostPrompt(in),
	}, &post)
	if err != nil {
		return Post{}, fmt.Errorf("post: %w", err)
	}
	return post, nil
}

func (p *Planner) Strategy(ctx context.Context, in StrategyInput) ([]StrategyItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.trimmed()

	var raw []json.RawMessage
	err := p.text.GenerateJSON(ctx, gemini.TextRequest{
		Model:  gemini.ModelTextPro,
		Prompt: StrategyPrompt(in),
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("%s strategy: %w", in.Kind, err)
	}

	items := make([]StrategyItem, 0, len(raw))
	for _, r := range raw {
		item, ok := decodeStrategyItem(r)
		if !ok {
			p.logger.Warn("skipping malformed strategy item", "kind", in.Kind)
			continue
		}
		items = append(items, item)
	}
	p.logger.Info("strategy generated", "kind", in.Kind, "items", len(items))
	return items, nil
}

type strategyReply struct {
	Stage                 string `json:"stage"`
	Task                  string `json:"task"`
	Title                 string `json:"title"`
	Name                  string `json:"name"`
	Section               string `json:"section"`
	Step                  string `json:"step"`
	Description           string `json:"description"`
	Content               string `json:"content"`
	ImagePromptSuggestion string `json:"imagePromptSuggestion"`
}

// decodeStrategyItem accepts the documented item shape, common key
// synonyms, or a bare string.
func decodeStrategyItem(raw json.RawMessage) (StrategyItem, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return StrategyItem{Task: s, Description: s, ImagePromptSuggestion: s}, s != ""
	}

	var r strategyReply
	if err := json.Unmarshal(raw, &r); err != nil {
		return StrategyItem{}, false
	}
	item := StrategyItem{
		Stage:                 r.Stage,
		Task:                  firstNonEmpty(r.Task, r.Title, r.Name, r.Section, r.Step),
		Description:           firstNonEmpty(r.Description, r.Content),
		ImagePromptSuggestion: r.ImagePromptSuggestion,
	}
	if item.Task == "" && item.Description == "" {
		return StrategyItem{}, false
	}
	return item, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type RowImageRequest struct {
	Prefix     string
	Suggestion string
	Audience   catalog.Audience
	SkinTone   string
	Overrides  *Overrides
	Identity   *asset.LockedFace
	Count      int
	Model      string
	Post       *Post
}

// RowImages renders images for a calendar row or strategy item with the
// locked face as identity.
func (p *Planner) RowImages(ctx context.Context, req RowImageRequest) ([]asset.LibraryAsset, error) {
	if req.Identity == nil || req.Identity.IsZero() {
		return nil, ErrIdentityRequired
	}
	face := *req.Identity

	var (
		resolved prompt.Resolved
		ratio    string
	)
	if req.Overrides != nil {
		resolved = req.Overrides.Resolved()
		ratio = req.Overrides.AspectRatioLabel()
	}

	model := gemini.ImageModel(req.Model)
	images, err := p.images.GenerateImages(ctx, gemini.ImageRequest{
		Instruction: prompt.Brief(prompt.BriefOptions{
			Prompt:         req.Suggestion,
			Audience:       req.Audience,
			SkinTone:       req.SkinTone,
			Resolved:       resolved,
			IdentityLocked: true,
		}),
		Identity:    &face,
		Count:       gemini.EffectiveCount(model, req.Count),
		AspectRatio: ratio,
		Model:       model,
	})
	if err != nil {
		return nil, err
	}

	prefix := req.Prefix
	if prefix == "" {
		prefix = "cal"
	}
	ts := p.now()
	out := make([]asset.LibraryAsset, len(images))
	for i, src := range images {
		a := asset.LibraryAsset{
			ID:          asset.NewID(prefix, ts, i),
			Src:         src,
			Prompt:      req.Suggestion,
			InputImages: []asset.LockedFace{face},
		}
		if req.Post != nil {
			a.BlogTitle = req.Post.Title
			a.BlogContent = req.Post.Caption
		}
		out[i] = a
	}
	return out, nil
}
