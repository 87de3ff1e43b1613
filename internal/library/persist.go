package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// FilePersister keeps one JSON file per owner under Dir.
type FilePersister struct {
	Dir string
	mu  sync.Mutex
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

func (p *FilePersister) path(owner string) string {
	return filepath.Join(p.Dir, unsafeName.ReplaceAllString(owner, "_")+".json")
}

func (p *FilePersister) Load(ctx context.Context, owner string) (Library, error) {
	data, err := os.ReadFile(p.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return Library{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}
	if len(data) == 0 {
		return Library{}, nil
	}
	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}
	return lib, nil
}

// Save writes the snapshot atomically through a temp file and rename.
func (p *FilePersister) Save(ctx context.Context, owner string, lib Library) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.path(owner)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open tmp: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if lib == nil {
		lib = Library{}
	}
	if err := enc.Encode(lib); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode library: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}
