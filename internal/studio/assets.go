package studio

import (
	"context"
	"errors"
	"fmt"

	"kol-studio/internal/asset"
	"kol-studio/internal/gemini"
	"kol-studio/internal/handoff"
	"kol-studio/internal/library"
	"kol-studio/internal/prompt"
	"kol-studio/internal/quickedit"
	"kol-studio/internal/session"
	"kol-studio/internal/variation"
)

// locate finds id in the current batch first, then in the library.
func (s *Studio) locate(ctx context.Context, owner, id string) (asset.LibraryAsset, bool, error) {
	ws := s.sessions.Get(owner)
	for _, a := range ws.Generated {
		if a.ID == id {
			return a, true, nil
		}
	}
	a, err := s.library.Find(ctx, owner, id)
	if err != nil {
		return asset.LibraryAsset{}, false, err
	}
	return a, false, nil
}

// regenerationInputs returns the recorded inputs with the locked face moved
// or inserted into the identity slot.
func regenerationInputs(a asset.LibraryAsset, face *asset.LockedFace) (*asset.LockedFace, []asset.LockedFace, error) {
	inputs := append([]asset.LockedFace(nil), a.InputImages...)
	if len(inputs) == 0 {
		src, err := asset.FromDataURL(a.Src)
		if err != nil {
			return nil, nil, fmt.Errorf("source image: %w", err)
		}
		inputs = []asset.LockedFace{src}
	}
	if face == nil {
		return nil, inputs, nil
	}

	refs := make([]asset.LockedFace, 0, len(inputs))
	for _, in := range inputs {
		if !in.SamePayload(*face) {
			refs = append(refs, in)
		}
	}
	identity := *face
	for _, in := range inputs {
		if in.SamePayload(*face) {
			identity = in
			break
		}
	}
	return &identity, refs, nil
}

// Regenerate re-renders an asset from its recorded prompt and inputs and
// replaces its source in place.
func (s *Studio) Regenerate(ctx context.Context, owner, id, model string) (asset.LibraryAsset, error) {
	a, inBatch, err := s.locate(ctx, owner, id)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	if inBatch {
		s.markBatch(owner, id, func(b *asset.LibraryAsset) { b.IsRegenerating = true })
		defer s.markBatch(owner, id, func(b *asset.LibraryAsset) { b.IsRegenerating = false })
	}

	a, err = s.rerender(ctx, s.sessions.Get(owner), a, model)
	if err != nil {
		s.setError(owner, err)
		return asset.LibraryAsset{}, err
	}
	if inBatch {
		s.markBatch(owner, id, func(b *asset.LibraryAsset) { *b = a })
	} else if _, err := s.library.Replace(ctx, owner, id, a); err != nil {
		return asset.LibraryAsset{}, err
	}
	s.logger.Info("asset regenerated", "owner", owner, "asset_id", id)
	return a, nil
}

// rerender produces a new source for a from its recorded prompt and inputs.
// A prompt first sent raw is sent raw again.
func (s *Studio) rerender(ctx context.Context, ws session.Workspace, a asset.LibraryAsset, model string) (asset.LibraryAsset, error) {
	identity, refs, err := regenerationInputs(a, ws.LockedFace)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	images, err := s.images.GenerateImages(ctx, gemini.ImageRequest{
		Instruction: prompt.Brief(prompt.BriefOptions{
			Prompt:         a.Prompt,
			Audience:       ws.Audience,
			SkinTone:       ws.SkinTone,
			IdentityLocked: identity != nil,
			CreatingKOL:    a.RawPrompt,
		}),
		Identity:   identity,
		References: refs,
		Count:      1,
		Model:      gemini.ImageModel(model),
	})
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	a = a.WithoutTransient()
	a.Src = images[0]
	return a, nil
}

func (s *Studio) markBatch(owner, id string, fn func(*asset.LibraryAsset)) {
	s.sessions.Update(owner, func(w *session.Workspace) {
		for i := range w.Generated {
			if w.Generated[i].ID == id {
				fn(&w.Generated[i])
			}
		}
	})
}

func (s *Studio) setError(owner string, err error) {
	msg := errorText(err)
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.Error = msg
	})
}

// Variations runs the variation pipeline for an asset and keeps the result
// pending until SaveVariations.
func (s *Studio) Variations(ctx context.Context, owner, id string) (variation.Result, error) {
	a, inBatch, err := s.locate(ctx, owner, id)
	if err != nil {
		return variation.Result{}, err
	}
	ws := s.sessions.Get(owner)

	if inBatch {
		s.markBatch(owner, id, func(b *asset.LibraryAsset) { b.IsGeneratingVariation = true })
		defer s.markBatch(owner, id, func(b *asset.LibraryAsset) { b.IsGeneratingVariation = false })
	}

	res, err := s.variations.Generate(ctx, a, ws.LockedFace)
	if err != nil {
		s.setError(owner, err)
		return variation.Result{}, err
	}
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.PendingVariation = &res
	})
	return res, nil
}

// SaveVariations stores every pending variation in one batch and clears the
// pending result.
func (s *Studio) SaveVariations(ctx context.Context, owner string) (int, error) {
	ws := s.sessions.Get(owner)
	if ws.PendingVariation == nil || len(ws.PendingVariation.Variations) == 0 {
		return 0, ErrNoPendingVariants
	}
	batch := ws.PendingVariation.Variations
	if _, err := s.library.SaveAll(ctx, owner, batch); err != nil {
		return 0, err
	}
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.PendingVariation = nil
	})
	return len(batch), nil
}

func (s *Studio) DiscardVariations(owner string) session.Workspace {
	return s.sessions.Update(owner, func(w *session.Workspace) {
		w.PendingVariation = nil
	})
}

// QuickEdit edits one asset. A batch asset is replaced in place; a library
// asset is replaced by the derived asset at the front and the viewer
// selection follows it.
func (s *Studio) QuickEdit(ctx context.Context, owner, id string, req quickedit.Request) (asset.LibraryAsset, error) {
	if _, _, err := req.Instruction(); err != nil {
		return asset.LibraryAsset{}, err
	}
	a, inBatch, err := s.locate(ctx, owner, id)
	if err != nil {
		return asset.LibraryAsset{}, err
	}

	var beginErr error
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.QuickEdit, beginErr = w.QuickEdit.Begin(a)
	})
	if beginErr != nil {
		return asset.LibraryAsset{}, beginErr
	}

	derived, err := s.applyEdit(ctx, owner, id, a, inBatch, req)
	s.sessions.Update(owner, func(w *session.Workspace) {
		switch {
		case err == nil:
			w.QuickEdit = w.QuickEdit.Succeed(derived)
		case IsCancelled(err):
			w.QuickEdit = w.QuickEdit.Close()
		default:
			w.QuickEdit = w.QuickEdit.Fail(errors.New(Message(err)))
		}
	})
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	return derived, nil
}

// applyEdit renders the edit and stores the derived asset where a lived.
func (s *Studio) applyEdit(ctx context.Context, owner, id string, a asset.LibraryAsset, inBatch bool, req quickedit.Request) (asset.LibraryAsset, error) {
	derived, err := s.edits.Edit(ctx, a, req)
	if err != nil {
		return asset.LibraryAsset{}, err
	}

	if inBatch {
		s.sessions.Update(owner, func(w *session.Workspace) {
			w.Generated, _ = quickedit.ReplaceInList(w.Generated, id, derived)
		})
		derived.ID = id
		return derived, nil
	}

	wasSelected := s.library.Selected(owner) == id
	_, err = s.library.Update(ctx, owner, func(lib library.Library) (library.Library, error) {
		return quickedit.ReplaceInLibrary(lib, id, derived), nil
	})
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	if wasSelected {
		if err := s.library.Select(ctx, owner, derived.ID); err != nil {
			return asset.LibraryAsset{}, err
		}
	}
	return derived, nil
}

func (s *Studio) CloseQuickEdit(owner string) session.Workspace {
	return s.sessions.Update(owner, func(w *session.Workspace) {
		w.QuickEdit = w.QuickEdit.Close()
	})
}

// UseAsset hands an outfit or background asset over to the creative view.
func (s *Studio) UseAsset(ctx context.Context, owner, id string) (handoff.Channel, error) {
	a, err := s.library.Find(ctx, owner, id)
	if err != nil {
		return "", err
	}
	var ch handoff.Channel
	switch a.Kind() {
	case asset.TypeBackground:
		ch = handoff.BackgroundToUse
	case asset.TypeOutfit:
		ch = handoff.OutfitToUse
	default:
		return "", ErrNotReference
	}

	ref, err := asset.FromDataURL(a.Src)
	if err != nil {
		return "", fmt.Errorf("asset image: %w", err)
	}
	if err := s.handoff.Publish(ctx, owner, handoff.Message{Channel: ch, Image: &ref}); err != nil {
		return "", err
	}
	return ch, nil
}

// UseSuggestion hands a prompt over to the creative view.
func (s *Studio) UseSuggestion(ctx context.Context, owner, text string) error {
	return s.handoff.Publish(ctx, owner, handoff.Message{Channel: handoff.SuggestionPrompt, Prompt: text})
}

// ConsumeHandoff applies every pending hand-off to the workspace and returns
// the channels that were applied.
func (s *Studio) ConsumeHandoff(ctx context.Context, owner string) (session.Workspace, []handoff.Channel, error) {
	msgs, err := s.handoff.Consume(ctx, owner)
	if err != nil && len(msgs) == 0 {
		return s.sessions.Get(owner), nil, err
	}

	applied := make([]handoff.Channel, 0, len(msgs))
	ws := s.sessions.Update(owner, func(w *session.Workspace) {
		for _, m := range msgs {
			switch m.Channel {
			case handoff.SuggestionPrompt:
				w.CustomPrompt = m.Prompt
			case handoff.BackgroundToUse:
				ref := *m.Image
				w.BackgroundRef = &ref
			case handoff.OutfitToUse:
				w.OutfitRefs = prependUnique(w.OutfitRefs, *m.Image)
			}
			applied = append(applied, m.Channel)
		}
	})
	return ws, applied, err
}
