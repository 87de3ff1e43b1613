package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"kol-studio/internal/asset"
	"kol-studio/internal/library"
	"kol-studio/internal/planning"
	"kol-studio/internal/quickedit"
	"kol-studio/internal/session"
	"kol-studio/internal/variation"
)

var ErrUnknownBoard = errors.New("unknown planning board")

// Board names one of the two planning lists of a workspace.
type Board string

const (
	BoardCalendar Board = "calendar"
	BoardStrategy Board = "strategy"
)

func ParseBoard(value string) (Board, error) {
	switch b := Board(strings.ToLower(strings.TrimSpace(value))); b {
	case BoardCalendar, BoardStrategy:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBoard, value)
}

// CalendarPlan replaces the calendar with a new 4-week plan.
func (s *Studio) CalendarPlan(ctx context.Context, owner string, in planning.CalendarInput) ([]planning.CalendarRow, error) {
	ws := s.sessions.Get(owner)
	if in.Audience == "" {
		in.Audience = ws.Audience
	}
	if strings.TrimSpace(in.KOLName) == "" {
		in.KOLName = ws.KOLName
	}

	rows, err := s.planner.Calendar(ctx, in)
	if err != nil {
		s.setError(owner, err)
		return nil, err
	}
	s.sessions.Update(owner, func(w *session.Workspace) {
		input := in
		w.CalendarInput = &input
		w.Calendar = rows
		w.CalendarID = s.plans.Add(1)
		w.Error = ""
	})
	return rows, nil
}

// Strategy replaces the strategy board with a new plan of the given kind.
func (s *Studio) Strategy(ctx context.Context, owner string, in planning.StrategyInput) ([]planning.StrategyItem, error) {
	if strings.TrimSpace(in.KOLName) == "" {
		in.KOLName = s.sessions.Get(owner).KOLName
	}
	items, err := s.planner.Strategy(ctx, in)
	if err != nil {
		if !errors.Is(err, planning.ErrInvalidStrategy) {
			s.setError(owner, err)
		}
		return nil, err
	}
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.Strategy = items
		w.StrategyID = s.plans.Add(1)
		w.Error = ""
	})
	return items, nil
}

// SetRowOverrides replaces the per-row image settings of a calendar row.
func (s *Studio) SetRowOverrides(owner string, index int, o planning.Overrides) (planning.CalendarRow, error) {
	var (
		row planning.CalendarRow
		err error
	)
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.Calendar, err = planning.UpdateAt(w.Calendar, index, func(r *planning.CalendarRow) {
			r.Overrides = o
			row = *r
		})
	})
	return row, err
}

// boardRow is the board-independent view of one row.
type boardRow struct {
	prefix      string
	topic       string
	contentType string
	suggestion  string
	overrides   *planning.Overrides
	state       planning.RowState
	// plan is the board id the row was read from.
	plan uint64
}

func (s *Studio) boardRow(owner string, board Board, index int) (boardRow, session.Workspace, error) {
	ws := s.sessions.Get(owner)
	switch board {
	case BoardCalendar:
		if index < 0 || index >= len(ws.Calendar) {
			return boardRow{}, ws, fmt.Errorf("%w: %d", planning.ErrRowOutOfRange, index)
		}
		r := ws.Calendar[index]
		o := r.Overrides
		return boardRow{
			prefix:      "cal",
			topic:       r.Description,
			contentType: r.ContentType,
			suggestion:  r.ImagePromptSuggestion,
			overrides:   &o,
			state:       r.RowState,
			plan:        ws.CalendarID,
		}, ws, nil
	case BoardStrategy:
		if index < 0 || index >= len(ws.Strategy) {
			return boardRow{}, ws, fmt.Errorf("%w: %d", planning.ErrRowOutOfRange, index)
		}
		it := ws.Strategy[index]
		return boardRow{
			prefix:     "strat",
			topic:      it.Topic(),
			suggestion: it.ImagePromptSuggestion,
			state:      it.RowState,
			plan:       ws.StrategyID,
		}, ws, nil
	}
	return boardRow{}, ws, fmt.Errorf("%w: %q", ErrUnknownBoard, board)
}

// updateRow applies fn to the state of one row of the plan the row was read
// from. Each call touches only that row, so concurrent row operations do not
// overwrite each other. Once the board is replaced the update is dropped.
func (s *Studio) updateRow(owner string, board Board, row boardRow, index int, fn func(*planning.RowState)) error {
	var err error
	s.sessions.Update(owner, func(w *session.Workspace) {
		switch board {
		case BoardCalendar:
			if w.CalendarID != row.plan {
				err = ErrPlanReplaced
				return
			}
			w.Calendar, err = planning.UpdateAt(w.Calendar, index, func(r *planning.CalendarRow) { fn(r.State()) })
		case BoardStrategy:
			if w.StrategyID != row.plan {
				err = ErrPlanReplaced
				return
			}
			w.Strategy, err = planning.UpdateAt(w.Strategy, index, func(r *planning.StrategyItem) { fn(r.State()) })
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownBoard, board)
		}
	})
	return err
}

// RowPost writes the post for one row.
func (s *Studio) RowPost(ctx context.Context, owner string, board Board, index int) (planning.Post, error) {
	row, ws, err := s.boardRow(owner, board, index)
	if err != nil {
		return planning.Post{}, err
	}
	in := planning.PostInput{
		Audience:    ws.Audience,
		KOLName:     ws.KOLName,
		Topic:       row.topic,
		ContentType: row.contentType,
	}
	if board == BoardCalendar && ws.CalendarInput != nil {
		in.Tone, in.Style = ws.CalendarInput.PostSettings()
	}

	_ = s.updateRow(owner, board, row, index, func(st *planning.RowState) { st.IsGeneratingPost = true })
	post, err := s.planner.Post(ctx, in)
	uerr := s.updateRow(owner, board, row, index, func(st *planning.RowState) {
		st.IsGeneratingPost = false
		if err == nil {
			p := post
			st.GeneratedPost = &p
		}
	})
	if err != nil {
		s.setError(owner, err)
		return planning.Post{}, err
	}
	return post, uerr
}

// RowImages renders images for one row with the locked face.
func (s *Studio) RowImages(ctx context.Context, owner string, board Board, index, count int, model string) ([]asset.LibraryAsset, error) {
	row, ws, err := s.boardRow(owner, board, index)
	if err != nil {
		return nil, err
	}
	if ws.LockedFace == nil {
		s.setError(owner, planning.ErrIdentityRequired)
		return nil, planning.ErrIdentityRequired
	}

	_ = s.updateRow(owner, board, row, index, func(st *planning.RowState) { st.IsGeneratingImages = true })
	images, err := s.planner.RowImages(ctx, planning.RowImageRequest{
		Prefix:     row.prefix,
		Suggestion: row.suggestion,
		Audience:   ws.Audience,
		SkinTone:   ws.SkinTone,
		Overrides:  row.overrides,
		Identity:   ws.LockedFace,
		Count:      count,
		Model:      model,
		Post:       row.state.GeneratedPost,
	})
	uerr := s.updateRow(owner, board, row, index, func(st *planning.RowState) {
		st.IsGeneratingImages = false
		if err == nil {
			st.GeneratedAssets = images
		}
	})
	if err != nil {
		s.setError(owner, err)
		return nil, err
	}
	s.logger.Info("row images generated", "owner", owner, "board", board, "row", index, "images", len(images))
	return images, uerr
}

func rowAsset(st planning.RowState, id string) (asset.LibraryAsset, error) {
	for _, a := range st.GeneratedAssets {
		if a.ID == id {
			return a, nil
		}
	}
	return asset.LibraryAsset{}, fmt.Errorf("%w: %s", library.ErrNotFound, id)
}

// RowRegenerate re-renders one image of a row in place.
func (s *Studio) RowRegenerate(ctx context.Context, owner string, board Board, index int, id, model string) (asset.LibraryAsset, error) {
	row, ws, err := s.boardRow(owner, board, index)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	a, err := rowAsset(row.state, id)
	if err != nil {
		return asset.LibraryAsset{}, err
	}

	setFlag := func(on bool) {
		_ = s.updateRow(owner, board, row, index, func(st *planning.RowState) {
			st.GeneratedAssets = markAsset(st.GeneratedAssets, id, func(b *asset.LibraryAsset) { b.IsRegenerating = on })
		})
	}
	setFlag(true)
	defer setFlag(false)

	a, err = s.rerender(ctx, ws, a, model)
	if err != nil {
		s.setError(owner, err)
		return asset.LibraryAsset{}, err
	}
	err = s.updateRow(owner, board, row, index, func(st *planning.RowState) {
		st.GeneratedAssets = markAsset(st.GeneratedAssets, id, func(b *asset.LibraryAsset) { *b = a })
	})
	return a, err
}

// RowVariations runs the variation pipeline for one image of a row and keeps
// the result on the row.
func (s *Studio) RowVariations(ctx context.Context, owner string, board Board, index int, id string) (variation.Result, error) {
	row, ws, err := s.boardRow(owner, board, index)
	if err != nil {
		return variation.Result{}, err
	}
	a, err := rowAsset(row.state, id)
	if err != nil {
		return variation.Result{}, err
	}

	_ = s.updateRow(owner, board, row, index, func(st *planning.RowState) { st.IsGeneratingVariation = true })
	res, err := s.variations.Generate(ctx, a, ws.LockedFace)
	uerr := s.updateRow(owner, board, row, index, func(st *planning.RowState) {
		st.IsGeneratingVariation = false
		if err == nil {
			r := res
			st.VariationResult = &r
		}
	})
	if err != nil {
		s.setError(owner, err)
		return variation.Result{}, err
	}
	return res, uerr
}

// RowQuickEdit edits one image of a row. The derived image keeps the row
// asset id.
func (s *Studio) RowQuickEdit(ctx context.Context, owner string, board Board, index int, id string, req quickedit.Request) (asset.LibraryAsset, error) {
	if _, _, err := req.Instruction(); err != nil {
		return asset.LibraryAsset{}, err
	}
	row, _, err := s.boardRow(owner, board, index)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	a, err := rowAsset(row.state, id)
	if err != nil {
		return asset.LibraryAsset{}, err
	}

	derived, err := s.edits.Edit(ctx, a, req)
	if err != nil {
		if !IsCancelled(err) {
			s.setError(owner, err)
		}
		return asset.LibraryAsset{}, err
	}
	err = s.updateRow(owner, board, row, index, func(st *planning.RowState) {
		st.GeneratedAssets, _ = quickedit.ReplaceInList(st.GeneratedAssets, id, derived)
	})
	derived.ID = id
	return derived, err
}

func markAsset(list []asset.LibraryAsset, id string, fn func(*asset.LibraryAsset)) []asset.LibraryAsset {
	out := append([]asset.LibraryAsset(nil), list...)
	for i := range out {
		if out[i].ID == id {
			fn(&out[i])
		}
	}
	return out
}

// ExportCalendarCSV writes the calendar of owner as CSV.
func (s *Studio) ExportCalendarCSV(w io.Writer, owner string) error {
	return planning.WriteCalendarCSV(w, s.sessions.Get(owner).Calendar)
}

// ExportStrategyCSV writes the strategy board of owner as CSV.
func (s *Studio) ExportStrategyCSV(w io.Writer, owner string) error {
	return planning.WriteStrategyCSV(w, s.sessions.Get(owner).Strategy)
}
