package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"kol-studio/internal/asset"
	"kol-studio/internal/catalog"
	"kol-studio/internal/gemini"
	"kol-studio/internal/handoff"
	"kol-studio/internal/library"
	"kol-studio/internal/planning"
	"kol-studio/internal/quickedit"
	"kol-studio/internal/session"
	"kol-studio/internal/variation"
	"kol-studio/internal/veo"
)

var (
	ErrFaceRequired      = errors.New("a locked face is required")
	ErrOutfitRequired    = errors.New("at least one outfit reference is required")
	ErrSourceRequired    = errors.New("a source image is required")
	ErrInstruction       = errors.New("an instruction is required")
	ErrLandmarksRequired = errors.New("at least one landmark is required")
	ErrNoVideoSource     = errors.New("no image selected for video")
	ErrNoVideo           = errors.New("no generated video to save")
	ErrNoPendingVariants = errors.New("no variations to save")
	ErrNotReference      = errors.New("asset is neither an outfit nor a background")
	ErrCaptionInput      = errors.New("an image or a topic is required")
	ErrPlanReplaced      = errors.New("the plan was replaced while the row was being processed")
)

type ImageService interface {
	GenerateImages(ctx context.Context, req gemini.ImageRequest) ([]string, error)
	EditImage(ctx context.Context, instruction string, image asset.LockedFace) (string, error)
}

type TextService interface {
	GenerateText(ctx context.Context, req gemini.TextRequest) (string, error)
	GenerateJSON(ctx context.Context, req gemini.TextRequest, out any) error
}

type VideoService interface {
	Generate(ctx context.Context, prompt string, image asset.LockedFace, cfg veo.Config) (veo.Video, error)
}

type Options struct {
	Sessions *session.Store
	Library  *library.Store
	Handoff  *handoff.Bus
	Images   ImageService
	Text     TextService
	Video    VideoService
	Logger   *slog.Logger
	Now      func() time.Time
}

// Studio is the orchestration core shared by the web and bot front ends.
type Studio struct {
	sessions   *session.Store
	library    *library.Store
	handoff    *handoff.Bus
	images     ImageService
	text       TextService
	video      VideoService
	variations *variation.Pipeline
	edits      *quickedit.Orchestrator
	planner    *planning.Planner
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string]*batch
	plans    atomic.Uint64
}

func New(opts Options) *Studio {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}
	lib := opts.Library
	if lib == nil {
		lib = library.NewStore(library.Options{Logger: logger})
	}
	bus := opts.Handoff
	if bus == nil {
		bus = handoff.New(handoff.Options{Logger: logger})
	}

	return &Studio{
		sessions:   sessions,
		library:    lib,
		handoff:    bus,
		images:     opts.Images,
		text:       opts.Text,
		video:      opts.Video,
		variations: variation.New(variation.Options{Images: opts.Images, Text: opts.Text, Logger: logger, Now: now}),
		edits:      quickedit.New(quickedit.Options{Editor: opts.Images, Logger: logger, Now: now}),
		planner:    planning.New(planning.Options{Text: opts.Text, Images: opts.Images, Logger: logger, Now: now}),
		logger:     logger,
		now:        now,
		inflight:   make(map[string]*batch),
	}
}

func (s *Studio) Sessions() *session.Store { return s.sessions }
func (s *Studio) Library() *library.Store  { return s.library }
func (s *Studio) Handoff() *handoff.Bus    { return s.handoff }

func (s *Studio) Workspace(owner string) session.Workspace {
	return s.sessions.Get(owner)
}

type ProfileUpdate struct {
	KOLName  *string `json:"kolName,omitempty"`
	Audience *string `json:"audience,omitempty"`
	SkinTone *string `json:"skinTone,omitempty"`
}

func (s *Studio) UpdateProfile(owner string, upd ProfileUpdate) (session.Workspace, error) {
	var audience catalog.Audience
	if upd.Audience != nil {
		a, err := catalog.ParseAudience(*upd.Audience)
		if err != nil {
			return session.Workspace{}, err
		}
		audience = a
	}
	return s.sessions.Update(owner, func(w *session.Workspace) {
		if upd.KOLName != nil {
			w.KOLName = strings.TrimSpace(*upd.KOLName)
		}
		if audience != "" {
			w.Audience = audience
		}
		if upd.SkinTone != nil {
			w.SkinTone = strings.TrimSpace(*upd.SkinTone)
		}
	}), nil
}

func (s *Studio) LockFace(owner string, face asset.LockedFace) (session.Workspace, error) {
	if face.IsZero() {
		return session.Workspace{}, ErrFaceRequired
	}
	if face.MimeType == "" {
		face.MimeType = "image/png"
	}
	return s.sessions.Update(owner, func(w *session.Workspace) {
		w.LockedFace = &face
	}), nil
}

func (s *Studio) UnlockFace(owner string) session.Workspace {
	return s.sessions.Update(owner, func(w *session.Workspace) {
		w.LockedFace = nil
	})
}

func (s *Studio) AddOutfitRef(owner string, ref asset.LockedFace) session.Workspace {
	return s.sessions.Update(owner, func(w *session.Workspace) {
		w.OutfitRefs = prependUnique(w.OutfitRefs, ref)
	})
}

func (s *Studio) ClearOutfitRefs(owner string) session.Workspace {
	return s.sessions.Update(owner, func(w *session.Workspace) {
		w.OutfitRefs = nil
	})
}

// Reset cancels running work and clears the workspace and pending
// hand-offs. The library is kept.
func (s *Studio) Reset(ctx context.Context, owner string) (session.Workspace, error) {
	s.Cancel(owner)
	ws := s.sessions.Reset(owner)
	if err := s.handoff.Reset(ctx, owner); err != nil {
		return ws, fmt.Errorf("reset hand-offs: %w", err)
	}
	s.logger.Info("workspace reset", "owner", owner)
	return ws, nil
}

type batch struct {
	cancel context.CancelFunc
}

// begin registers the owner's cancellable batch, replacing any previous one.
// The returned batch stays current until it is replaced or done runs.
func (s *Studio) begin(ctx context.Context, owner string) (context.Context, *batch, func()) {
	ctx, cancel := context.WithCancel(ctx)
	b := &batch{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[owner]; ok {
		prev.cancel()
	}
	s.inflight[owner] = b
	s.mu.Unlock()

	return ctx, b, func() {
		cancel()
		s.mu.Lock()
		if s.inflight[owner] == b {
			delete(s.inflight, owner)
		}
		s.mu.Unlock()
	}
}

// current reports whether b is still the owner's registered batch.
func (s *Studio) current(owner string, b *batch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[owner] == b
}

// Cancel aborts the owner's running batch. It reports whether one was running.
// The batch stays registered until it unwinds so its cleanup still runs.
func (s *Studio) Cancel(owner string) bool {
	s.mu.Lock()
	b, ok := s.inflight[owner]
	s.mu.Unlock()

	if ok {
		b.cancel()
		s.logger.Info("generation cancelled", "owner", owner)
	}
	return ok
}

// IsCancelled reports whether err is a user cancellation that must not be
// shown as an error.
func IsCancelled(err error) bool {
	return gemini.IsCancelled(err) || errors.Is(err, context.Canceled)
}

func prependUnique(list []asset.LockedFace, ref asset.LockedFace) []asset.LockedFace {
	for _, r := range list {
		if r.SamePayload(ref) {
			return list
		}
	}
	return append([]asset.LockedFace{ref}, list...)
}

func errorText(err error) string {
	if err == nil || IsCancelled(err) {
		return ""
	}
	return Message(err)
}
