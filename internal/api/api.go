package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"kol-studio/internal/asset"
	"kol-studio/internal/gemini"
	"kol-studio/internal/library"
	"kol-studio/internal/planning"
	"kol-studio/internal/quickedit"
	"kol-studio/internal/studio"
	"kol-studio/internal/veo"
)

const SessionHeader = "X-Session-ID"

// maxBody bounds request bodies; library imports carry base64 images.
const maxBody = 64 << 20

var (
	errNoSession      = errors.New("missing or unknown session")
	errInvalidRequest = errors.New("invalid request body")
)

type Options struct {
	Studio      *studio.Studio
	Logger      *slog.Logger
	CORSOrigins []string
}

type Server struct {
	studio   *studio.Studio
	logger   *slog.Logger
	origins  []string
	validate *validator.Validate
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		studio:   opts.Studio,
		logger:   logger,
		origins:  origins,
		validate: validator.New(),
	}
}

// Handler returns the full HTTP handler with CORS and panic recovery.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/catalog", s.audiences).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{audience}", s.catalog).Methods(http.MethodGet)
	api.HandleFunc("/handoff/ws", s.handoffSocket).Methods(http.MethodGet)

	ws := api.NewRoute().Subrouter()
	ws.Use(s.requireSession)
	s.routes(ws)

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", SessionHeader}),
		handlers.ExposedHeaders([]string{SessionHeader, "Content-Disposition"}),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}), handlers.PrintRecoveryStack(false))
	return recovery(handlers.CustomLoggingHandler(io.Discard, cors(r), s.logRequest))
}

// logRequest writes access lines through slog. The session header and
// query string are left out.
func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Info("http",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"bytes", p.Size,
		"dur_ms", time.Since(p.TimeStamp).Milliseconds(),
	)
}

type recoveryLogger struct{ logger *slog.Logger }

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("handler panic", "panic", v)
}

type ownerKey struct{}

// requireSession resolves the workspace named by the session header.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.sessionID(r)
		if !ok {
			s.writeError(w, r, errNoSession)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("session"))
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	owner := "web:" + id
	return owner, s.studio.Sessions().Has(owner)
}

func owner(r *http.Request) string {
	v, _ := r.Context().Value(ownerKey{}).(string)
	return v
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, errors.Join(errInvalidRequest, err))
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			s.writeError(w, r, errors.Join(errInvalidRequest, err))
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and a user message. Cancellations are
// not errors.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if studio.IsCancelled(err) {
		writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
		return
	}
	status := statusOf(err)
	msg := studio.Message(err)
	switch {
	case errors.Is(err, errNoSession):
		msg = "Phiên làm việc không tồn tại."
	case errors.Is(err, errInvalidRequest):
		msg = "Yêu cầu không hợp lệ."
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

var badRequest = []error{
	errInvalidRequest,
	studio.ErrFaceRequired,
	studio.ErrOutfitRequired,
	studio.ErrSourceRequired,
	studio.ErrInstruction,
	studio.ErrLandmarksRequired,
	studio.ErrNoVideoSource,
	studio.ErrNoVideo,
	studio.ErrNoPendingVariants,
	studio.ErrNotReference,
	studio.ErrCaptionInput,
	studio.ErrUnknownBoard,
	planning.ErrIdentityRequired,
	planning.ErrInvalidStrategy,
	quickedit.ErrMultipleEdits,
	quickedit.ErrNoEdit,
	gemini.ErrEmptyPrompt,
	veo.ErrEmptyPrompt,
	asset.ErrVideoWithoutSource,
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, library.ErrNotFound), errors.Is(err, planning.ErrRowOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, quickedit.ErrBusy), errors.Is(err, studio.ErrPlanReplaced):
		return http.StatusConflict
	}
	for _, e := range badRequest {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	var importErr *library.ImportError
	if errors.As(err, &importErr) {
		return http.StatusBadRequest
	}
	if gemini.IsTransient(err) {
		return http.StatusServiceUnavailable
	}
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) || errors.Is(err, gemini.ErrNoImage) || errors.Is(err, veo.ErrNoVideo) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func rowIndex(r *http.Request) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)["row"])
	if err != nil {
		return 0, errors.Join(errInvalidRequest, err)
	}
	return n, nil
}

// decodeLoose decodes without struct validation, for inputs validated by the
// studio itself.
func decodeLoose(r *http.Request, out any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(errInvalidRequest, err)
	}
	return nil
}
