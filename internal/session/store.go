package session

import (
	"sync"
	"time"

	"kol-studio/internal/asset"
	"kol-studio/internal/catalog"
	"kol-studio/internal/planning"
	"kol-studio/internal/prompt"
	"kol-studio/internal/quickedit"
	"kol-studio/internal/variation"
)

type Profile struct {
	KOLName  string           `json:"kolName"`
	Audience catalog.Audience `json:"audience"`
	SkinTone string           `json:"skinTone,omitempty"`
}

// VeoState is the video modal: the source image, the suggested prompts and
// the last rendered clip.
type VeoState struct {
	Open        bool                `json:"open"`
	Source      *asset.LibraryAsset `json:"source,omitempty"`
	Prompts     []prompt.VeoPrompt  `json:"prompts,omitempty"`
	Generating  bool                `json:"generating,omitempty"`
	VideoSrc    string              `json:"videoSrc,omitempty"`
	VideoPrompt string              `json:"videoPrompt,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type Workspace struct {
	Owner string `json:"owner"`
	Profile

	LockedFace    *asset.LockedFace  `json:"lockedFace,omitempty"`
	CustomPrompt  string             `json:"customPrompt,omitempty"`
	BackgroundRef *asset.LockedFace  `json:"backgroundRef,omitempty"`
	OutfitRefs    []asset.LockedFace `json:"outfitRefs,omitempty"`

	Generated        []asset.LibraryAsset `json:"generated,omitempty"`
	Loading          bool                 `json:"loading"`
	Error            string               `json:"error,omitempty"`
	PendingVariation *variation.Result    `json:"pendingVariation,omitempty"`
	Veo              VeoState             `json:"veo"`
	QuickEdit        quickedit.Session    `json:"quickEdit"`

	CalendarInput *planning.CalendarInput `json:"calendarInput,omitempty"`
	Calendar      []planning.CalendarRow  `json:"calendar,omitempty"`
	Strategy      []planning.StrategyItem `json:"strategy,omitempty"`

	// CalendarID and StrategyID change every time the board is replaced.
	CalendarID uint64 `json:"calendarId,omitempty"`
	StrategyID uint64 `json:"strategyId,omitempty"`

	LastActivity time.Time `json:"lastActivity"`
}

func newWorkspace(owner string, now time.Time) *Workspace {
	return &Workspace{
		Owner:        owner,
		Profile:      Profile{Audience: catalog.Female},
		QuickEdit:    quickedit.Session{State: quickedit.StateIdle},
		LastActivity: now,
	}
}

func (w *Workspace) clone() Workspace {
	out := *w
	out.OutfitRefs = append([]asset.LockedFace(nil), w.OutfitRefs...)
	out.Generated = append([]asset.LibraryAsset(nil), w.Generated...)
	out.Calendar = append([]planning.CalendarRow(nil), w.Calendar...)
	out.Strategy = append([]planning.StrategyItem(nil), w.Strategy...)
	out.Veo.Prompts = append([]prompt.VeoPrompt(nil), w.Veo.Prompts...)
	return out
}

type Options struct {
	IdleTimeout time.Duration
	Now         func() time.Time
}

type Store struct {
	mu          sync.Mutex
	workspaces  map[string]*Workspace
	idleTimeout time.Duration
	now         func() time.Time
}

func NewStore(opts Options) *Store {
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		workspaces:  make(map[string]*Workspace),
		idleTimeout: idle,
		now:         now,
	}
}

func (s *Store) Has(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.workspaces[owner]
	return ok
}

// Get returns a snapshot of the owner's workspace, creating it on first use.
func (s *Store) Get(owner string) Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.getOrCreateLocked(owner)
	ws.LastActivity = s.now()
	return ws.clone()
}

// Update applies fn to the latest workspace under the lock and returns the
// resulting snapshot.
func (s *Store) Update(owner string, fn func(*Workspace)) Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.getOrCreateLocked(owner)
	fn(ws)
	ws.Owner = owner
	ws.LastActivity = s.now()
	return ws.clone()
}

// Reset puts the workspace back to its initial shape.
func (s *Store) Reset(owner string) Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := newWorkspace(owner, s.now())
	s.workspaces[owner] = ws
	return ws.clone()
}

// Prune drops workspaces idle for longer than the configured timeout and
// returns their owners.
func (s *Store) Prune() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTimeout)
	var dropped []string
	for owner, ws := range s.workspaces {
		if ws.LastActivity.Before(cutoff) {
			delete(s.workspaces, owner)
			dropped = append(dropped, owner)
		}
	}
	return dropped
}

func (s *Store) getOrCreateLocked(owner string) *Workspace {
	if ws, ok := s.workspaces[owner]; ok {
		return ws
	}

	ws := newWorkspace(owner, s.now())
	s.workspaces[owner] = ws
	return ws
}
