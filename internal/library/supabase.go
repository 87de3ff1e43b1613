package library

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"kol-studio/internal/asset"
)

// SupabasePersister keeps one row per asset:
// owner text, position int, id text, payload jsonb.
type SupabasePersister struct {
	Client *supabase.Client
	Table  string
}

type assetRow struct {
	Owner    string             `json:"owner"`
	Position int                `json:"position"`
	ID       string             `json:"id"`
	Payload  asset.LibraryAsset `json:"payload"`
}

func NewSupabasePersister(url, key, table string) (*SupabasePersister, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	if table == "" {
		table = "library_assets"
	}
	return &SupabasePersister{Client: client, Table: table}, nil
}

func (p *SupabasePersister) Load(ctx context.Context, owner string) (Library, error) {
	body, _, err := p.Client.From(p.Table).
		Select("*", "", false).
		Eq("owner", owner).
		Order("position", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("supabase select: %w", err)
	}

	var rows []assetRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	lib := make(Library, 0, len(rows))
	for _, r := range rows {
		lib = append(lib, r.Payload)
	}
	return lib, nil
}

// Save replaces the owner's rows with the snapshot.
func (p *SupabasePersister) Save(ctx context.Context, owner string, lib Library) error {
	if _, _, err := p.Client.From(p.Table).Delete("minimal", "").Eq("owner", owner).Execute(); err != nil {
		return fmt.Errorf("supabase delete: %w", err)
	}
	if len(lib) == 0 {
		return nil
	}
	rows := make([]assetRow, 0, len(lib))
	for i, a := range lib {
		rows = append(rows, assetRow{Owner: owner, Position: i, ID: a.ID, Payload: a})
	}
	if _, _, err := p.Client.From(p.Table).Insert(rows, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("supabase insert: %w", err)
	}
	return nil
}
