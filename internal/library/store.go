package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"kol-studio/internal/asset"
)

var ErrNotFound = errors.New("asset not found")

// Persister stores one library snapshot per owner.
type Persister interface {
	Load(ctx context.Context, owner string) (Library, error)
	Save(ctx context.Context, owner string, lib Library) error
}

type Options struct {
	Persister Persister
	Logger    *slog.Logger
}

type Store struct {
	mu        sync.Mutex
	owners    map[string]*ownerState
	persister Persister
	logger    *slog.Logger
}

type ownerState struct {
	mu       sync.Mutex
	loaded   bool
	lib      Library
	selected string
}

func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		owners:    make(map[string]*ownerState),
		persister: opts.Persister,
		logger:    logger,
	}
}

func (s *Store) getOrCreate(owner string) *ownerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.owners[owner]
	if !ok {
		st = &ownerState{}
		s.owners[owner] = st
	}
	return st
}

// loadLocked must be called with st.mu held.
func (s *Store) loadLocked(ctx context.Context, owner string, st *ownerState) error {
	if st.loaded {
		return nil
	}
	if s.persister != nil {
		lib, err := s.persister.Load(ctx, owner)
		if err != nil {
			return fmt.Errorf("load library: %w", err)
		}
		st.lib = lib
	}
	st.loaded = true
	return nil
}

func (s *Store) Get(ctx context.Context, owner string) (Library, error) {
	st := s.getOrCreate(owner)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := s.loadLocked(ctx, owner, st); err != nil {
		return nil, err
	}
	return append(Library(nil), st.lib...), nil
}

// Update applies fn to the latest snapshot and persists the result.
// Updates for one owner are serialized.
func (s *Store) Update(ctx context.Context, owner string, fn func(Library) (Library, error)) (Library, error) {
	st := s.getOrCreate(owner)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := s.loadLocked(ctx, owner, st); err != nil {
		return nil, err
	}

	next, err := fn(append(Library(nil), st.lib...))
	if err != nil {
		return nil, err
	}
	if s.persister != nil {
		if err := s.persister.Save(ctx, owner, next); err != nil {
			return nil, fmt.Errorf("save library: %w", err)
		}
	}
	st.lib = next
	if st.selected != "" {
		if _, ok := Find(next, st.selected); !ok {
			st.selected = ""
		}
	}
	return append(Library(nil), next...), nil
}

func (s *Store) Save(ctx context.Context, owner string, a asset.LibraryAsset) (Library, error) {
	a = a.WithoutTransient()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return s.Update(ctx, owner, func(lib Library) (Library, error) {
		return Save(lib, a), nil
	})
}

func (s *Store) SaveAll(ctx context.Context, owner string, batch []asset.LibraryAsset) (Library, error) {
	clean := make([]asset.LibraryAsset, 0, len(batch))
	for _, a := range batch {
		a = a.WithoutTransient()
		if err := a.Validate(); err != nil {
			return nil, err
		}
		clean = append(clean, a)
	}
	return s.Update(ctx, owner, func(lib Library) (Library, error) {
		return SaveAll(lib, clean), nil
	})
}

// Delete removes id and clears the selection when it pointed at id.
func (s *Store) Delete(ctx context.Context, owner, id string) (Library, error) {
	return s.Update(ctx, owner, func(lib Library) (Library, error) {
		if _, ok := Find(lib, id); !ok {
			return nil, ErrNotFound
		}
		return Delete(lib, id), nil
	})
}

func (s *Store) Replace(ctx context.Context, owner, id string, a asset.LibraryAsset) (Library, error) {
	return s.Update(ctx, owner, func(lib Library) (Library, error) {
		next, ok := Replace(lib, id, a)
		if !ok {
			return nil, ErrNotFound
		}
		return next, nil
	})
}

func (s *Store) Find(ctx context.Context, owner, id string) (asset.LibraryAsset, error) {
	lib, err := s.Get(ctx, owner)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	a, ok := Find(lib, id)
	if !ok {
		return asset.LibraryAsset{}, ErrNotFound
	}
	return a, nil
}

// Import validates payload and merges it in front of the local library.
func (s *Store) Import(ctx context.Context, owner string, payload []byte) (Library, int, error) {
	external, err := ParseImport(payload)
	if err != nil {
		return nil, 0, err
	}
	lib, err := s.Update(ctx, owner, func(lib Library) (Library, error) {
		return Merge(external, lib), nil
	})
	if err != nil {
		return nil, 0, err
	}
	s.logger.Info("library imported", "owner", owner, "imported", len(external), "total", len(lib))
	return lib, len(external), nil
}

func (s *Store) Select(ctx context.Context, owner, id string) error {
	st := s.getOrCreate(owner)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := s.loadLocked(ctx, owner, st); err != nil {
		return err
	}
	if id == "" {
		st.selected = ""
		return nil
	}
	if _, ok := Find(st.lib, id); !ok {
		return ErrNotFound
	}
	st.selected = id
	return nil
}

func (s *Store) Selected(owner string) string {
	st := s.getOrCreate(owner)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.selected
}
