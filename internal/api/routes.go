package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"kol-studio/internal/asset"
	"kol-studio/internal/catalog"
	"kol-studio/internal/library"
	"kol-studio/internal/planning"
	"kol-studio/internal/prompt"
	"kol-studio/internal/quickedit"
	"kol-studio/internal/studio"
	"kol-studio/internal/veo"
)

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/workspace", s.getWorkspace).Methods(http.MethodGet)
	r.HandleFunc("/workspace", s.updateProfile).Methods(http.MethodPut)
	r.HandleFunc("/workspace/reset", s.resetWorkspace).Methods(http.MethodPost)
	r.HandleFunc("/workspace/face", s.lockFace).Methods(http.MethodPut)
	r.HandleFunc("/workspace/face", s.unlockFace).Methods(http.MethodDelete)
	r.HandleFunc("/workspace/outfits", s.addOutfit).Methods(http.MethodPost)
	r.HandleFunc("/workspace/outfits", s.clearOutfits).Methods(http.MethodDelete)

	r.HandleFunc("/generate", s.generate).Methods(http.MethodPost)
	r.HandleFunc("/generate/cancel", s.cancel).Methods(http.MethodPost)

	r.HandleFunc("/library", s.listLibrary).Methods(http.MethodGet)
	r.HandleFunc("/library", s.saveAsset).Methods(http.MethodPost)
	r.HandleFunc("/library/selection", s.selectAsset).Methods(http.MethodPut)
	r.HandleFunc("/library/import", s.importLibrary).Methods(http.MethodPost)
	r.HandleFunc("/library/export", s.exportLibrary).Methods(http.MethodGet)
	r.HandleFunc("/library/export.zip", s.exportArchive).Methods(http.MethodGet)
	r.HandleFunc("/library/{id}", s.deleteAsset).Methods(http.MethodDelete)
	r.HandleFunc("/library/{id}/regenerate", s.regenerate).Methods(http.MethodPost)
	r.HandleFunc("/library/{id}/variations", s.variations).Methods(http.MethodPost)
	r.HandleFunc("/library/{id}/edit", s.quickEdit).Methods(http.MethodPost)
	r.HandleFunc("/library/{id}/use", s.useAsset).Methods(http.MethodPost)
	r.HandleFunc("/library/{id}/veo", s.openVeo).Methods(http.MethodPost)

	r.HandleFunc("/variations/save", s.saveVariations).Methods(http.MethodPost)
	r.HandleFunc("/variations", s.discardVariations).Methods(http.MethodDelete)
	r.HandleFunc("/edit", s.closeQuickEdit).Methods(http.MethodDelete)

	r.HandleFunc("/veo/prompts", s.veoPrompts).Methods(http.MethodPost)
	r.HandleFunc("/veo/generate", s.generateVideo).Methods(http.MethodPost)
	r.HandleFunc("/veo/save", s.saveVideo).Methods(http.MethodPost)
	r.HandleFunc("/veo", s.closeVeo).Methods(http.MethodDelete)

	r.HandleFunc("/handoff", s.consumeHandoff).Methods(http.MethodGet)
	r.HandleFunc("/handoff/suggestion", s.useSuggestion).Methods(http.MethodPost)

	r.HandleFunc("/captions", s.captions).Methods(http.MethodPost)
	r.HandleFunc("/suggest/name", s.suggestName).Methods(http.MethodPost)
	r.HandleFunc("/suggest/rich-prompt", s.richPrompt).Methods(http.MethodPost)
	r.HandleFunc("/suggest/landmarks", s.landmarks).Methods(http.MethodPost)
	r.HandleFunc("/extract/outfit", s.extractOutfit).Methods(http.MethodPost)
	r.HandleFunc("/extract/background", s.extractBackground).Methods(http.MethodPost)
	r.HandleFunc("/extract/prompt", s.promptFromImage).Methods(http.MethodPost)

	r.HandleFunc("/calendar", s.calendar).Methods(http.MethodPost)
	r.HandleFunc("/calendar.csv", s.calendarCSV).Methods(http.MethodGet)
	r.HandleFunc("/calendar/{row}/overrides", s.rowOverrides).Methods(http.MethodPut)
	r.HandleFunc("/strategy", s.strategy).Methods(http.MethodPost)
	r.HandleFunc("/strategy.csv", s.strategyCSV).Methods(http.MethodGet)
	for _, board := range []studio.Board{studio.BoardCalendar, studio.BoardStrategy} {
		prefix := "/" + string(board) + "/{row}"
		r.HandleFunc(prefix+"/post", s.rowPost(board)).Methods(http.MethodPost)
		r.HandleFunc(prefix+"/images", s.rowImages(board)).Methods(http.MethodPost)
		r.HandleFunc(prefix+"/regenerate", s.rowRegenerate(board)).Methods(http.MethodPost)
		r.HandleFunc(prefix+"/variations", s.rowVariations(board)).Methods(http.MethodPost)
		r.HandleFunc(prefix+"/edit", s.rowEdit(board)).Methods(http.MethodPost)
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	ws := s.studio.Workspace("web:" + id)
	w.Header().Set(SessionHeader, id)
	writeJSON(w, http.StatusCreated, map[string]any{"sessionId": id, "workspace": ws})
}

func (s *Server) audiences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Audiences())
}

func (s *Server) catalog(w http.ResponseWriter, r *http.Request) {
	a, err := catalog.ParseAudience(mux.Vars(r)["audience"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Không tìm thấy đối tượng KOL."})
		return
	}
	writeJSON(w, http.StatusOK, catalog.Default().Schema(a, true))
}

func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.Workspace(owner(r)))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req studio.ProfileUpdate
	if !s.decode(w, r, &req) {
		return
	}
	ws, err := s.studio.UpdateProfile(owner(r), req)
	if err != nil {
		s.writeError(w, r, errInvalidRequest)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) resetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.studio.Reset(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

type imageBody struct {
	Image asset.LockedFace `json:"image"`
}

func (s *Server) lockFace(w http.ResponseWriter, r *http.Request) {
	var req imageBody
	if !s.decode(w, r, &req) {
		return
	}
	ws, err := s.studio.LockFace(owner(r), req.Image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) unlockFace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.UnlockFace(owner(r)))
}

func (s *Server) addOutfit(w http.ResponseWriter, r *http.Request) {
	var req imageBody
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.studio.AddOutfitRef(owner(r), req.Image))
}

func (s *Server) clearOutfits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.ClearOutfitRefs(owner(r)))
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req studio.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	ws, err := s.studio.Submit(r.Context(), owner(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.studio.Cancel(owner(r))})
}

func (s *Server) listLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := s.studio.Library().Get(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assets":   lib.Filter(library.ParseFilter(r.URL.Query().Get("filter"))),
		"selected": s.studio.Library().Selected(owner(r)),
	})
}

func (s *Server) saveAsset(w http.ResponseWriter, r *http.Request) {
	var a asset.LibraryAsset
	if !s.decode(w, r, &a) {
		return
	}
	if err := a.Validate(); err != nil {
		s.writeError(w, r, errInvalidRequest)
		return
	}
	lib, err := s.studio.Library().Save(r.Context(), owner(r), a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) {
	lib, err := s.studio.Library().Delete(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

func (s *Server) selectAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.studio.Library().Select(r.Context(), owner(r), req.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": req.ID})
}

func (s *Server) importLibrary(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.writeError(w, r, errInvalidRequest)
		return
	}
	lib, n, err := s.studio.Library().Import(r.Context(), owner(r), payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": n, "assets": lib})
}

func (s *Server) exportLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := s.studio.Library().Get(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := library.ExportJSON(lib)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attachment(w, "application/json", library.ExportFileName)
	_, _ = w.Write(data)
}

func (s *Server) exportArchive(w http.ResponseWriter, r *http.Request) {
	lib, err := s.studio.Library().Get(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := library.ExportZIP(&buf, lib); err != nil {
		s.writeError(w, r, err)
		return
	}
	attachment(w, "application/zip", library.ArchiveFileName)
	_, _ = buf.WriteTo(w)
}

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
}

type modelBody struct {
	Model string `json:"model,omitempty" validate:"omitempty,oneof=fast pro gemini-2.5-flash-image gemini-3-pro-image-preview"`
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	var req modelBody
	if !s.decode(w, r, &req) {
		return
	}
	a, err := s.studio.Regenerate(r.Context(), owner(r), mux.Vars(r)["id"], req.Model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) variations(w http.ResponseWriter, r *http.Request) {
	res, err := s.studio.Variations(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) saveVariations(w http.ResponseWriter, r *http.Request) {
	n, err := s.studio.SaveVariations(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": n})
}

func (s *Server) discardVariations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.DiscardVariations(owner(r)))
}

func (s *Server) quickEdit(w http.ResponseWriter, r *http.Request) {
	var req quickedit.Request
	if !s.decode(w, r, &req) {
		return
	}
	a, err := s.studio.QuickEdit(r.Context(), owner(r), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) closeQuickEdit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.CloseQuickEdit(owner(r)))
}

func (s *Server) useAsset(w http.ResponseWriter, r *http.Request) {
	ch, err := s.studio.UseAsset(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"channel": string(ch)})
}

func (s *Server) openVeo(w http.ResponseWriter, r *http.Request) {
	ws, err := s.studio.OpenVeo(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Veo)
}

func (s *Server) veoPrompts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Idea string `json:"idea"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	prompts, err := s.studio.VeoPrompts(owner(r), req.Idea)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (s *Server) generateVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt" validate:"required"`
		veo.Config
	}
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.studio.GenerateVideo(r.Context(), owner(r), req.Prompt, req.Config); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.studio.Workspace(owner(r)).Veo)
}

func (s *Server) saveVideo(w http.ResponseWriter, r *http.Request) {
	a, err := s.studio.SaveVideo(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) closeVeo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.CloseVeo(owner(r)))
}

func (s *Server) consumeHandoff(w http.ResponseWriter, r *http.Request) {
	ws, applied, err := s.studio.ConsumeHandoff(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied, "workspace": ws})
}

func (s *Server) useSuggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.studio.UseSuggestion(r.Context(), owner(r), req.Prompt); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) captions(w http.ResponseWriter, r *http.Request) {
	var req studio.CaptionRequest
	if !s.decode(w, r, &req) {
		return
	}
	set, err := s.studio.Captions(r.Context(), owner(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) suggestName(w http.ResponseWriter, r *http.Request) {
	name, err := s.studio.KOLName(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"kolName": name})
}

func (s *Server) richPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selections prompt.Selections `json:"selections"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	text, err := s.studio.RichPrompt(r.Context(), owner(r), req.Selections)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": text})
}

func (s *Server) landmarks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location string `json:"location"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	list, err := s.studio.Landmarks(r.Context(), req.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) extractOutfit(w http.ResponseWriter, r *http.Request) {
	var req imageBody
	if !s.decode(w, r, &req) {
		return
	}
	a, err := s.studio.ExtractOutfit(r.Context(), owner(r), req.Image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) extractBackground(w http.ResponseWriter, r *http.Request) {
	var req imageBody
	if !s.decode(w, r, &req) {
		return
	}
	a, err := s.studio.ExtractBackground(r.Context(), req.Image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) promptFromImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		imageBody
		studio.PromptFromImageOptions
	}
	if !s.decode(w, r, &req) {
		return
	}
	text, err := s.studio.PromptFromImage(r.Context(), req.Image, req.PromptFromImageOptions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": text})
}

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	var req planning.CalendarInput
	if !s.decode(w, r, &req) {
		return
	}
	rows, err := s.studio.CalendarPlan(r.Context(), owner(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) strategy(w http.ResponseWriter, r *http.Request) {
	var req planning.StrategyInput
	if err := decodeLoose(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.studio.Strategy(r.Context(), owner(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) rowOverrides(w http.ResponseWriter, r *http.Request) {
	index, err := rowIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req planning.Overrides
	if !s.decode(w, r, &req) {
		return
	}
	row, err := s.studio.SetRowOverrides(owner(r), index, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) calendarCSV(w http.ResponseWriter, r *http.Request) {
	attachment(w, "text/csv; charset=utf-8", planning.CalendarFileName)
	if err := s.studio.ExportCalendarCSV(w, owner(r)); err != nil {
		s.logger.Error("calendar export failed", "err", err)
	}
}

func (s *Server) strategyCSV(w http.ResponseWriter, r *http.Request) {
	attachment(w, "text/csv; charset=utf-8", planning.StrategyFileName)
	if err := s.studio.ExportStrategyCSV(w, owner(r)); err != nil {
		s.logger.Error("strategy export failed", "err", err)
	}
}

func (s *Server) rowPost(board studio.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := rowIndex(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		post, err := s.studio.RowPost(r.Context(), owner(r), board, index)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (s *Server) rowImages(board studio.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := rowIndex(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		var req struct {
			modelBody
			Count int `json:"count" validate:"omitempty,min=1,max=4"`
		}
		if !s.decode(w, r, &req) {
			return
		}
		images, err := s.studio.RowImages(r.Context(), owner(r), board, index, req.Count, req.Model)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, images)
	}
}

type rowAssetBody struct {
	AssetID string `json:"assetId" validate:"required"`
}

func (s *Server) rowRegenerate(board studio.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := rowIndex(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		var req struct {
			rowAssetBody
			modelBody
		}
		if !s.decode(w, r, &req) {
			return
		}
		a, err := s.studio.RowRegenerate(r.Context(), owner(r), board, index, req.AssetID, req.Model)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func (s *Server) rowVariations(board studio.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := rowIndex(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		var req rowAssetBody
		if !s.decode(w, r, &req) {
			return
		}
		res, err := s.studio.RowVariations(r.Context(), owner(r), board, index, req.AssetID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) rowEdit(board studio.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := rowIndex(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		var req struct {
			rowAssetBody
			quickedit.Request
		}
		if !s.decode(w, r, &req) {
			return
		}
		a, err := s.studio.RowQuickEdit(r.Context(), owner(r), board, index, req.AssetID, req.Request)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
