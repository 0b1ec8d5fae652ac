// Package server exposes the speller and the user dictionary as a JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"speller/internal/corrector"
	"speller/internal/metrics"
	"speller/internal/tokenizer"
	"speller/internal/userdict"
	"speller/pkg/options"
)

type Server struct {
	corrector   *corrector.SpellCorrector
	metrics     *metrics.Collector
	metricsPath string
	log         *zap.Logger
	httpServer  *http.Server
}

type Option func(*Server)

// WithMetrics serves collector at path and records every query on it.
func WithMetrics(c *metrics.Collector, path string) Option {
	return func(s *Server) {
		s.metrics = c
		s.metricsPath = path
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

func New(sc *corrector.SpellCorrector, opts ...Option) *Server {
	s := &Server{corrector: sc, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/suggest", s.handleSuggest)
	mux.HandleFunc("/api/v1/is-correct", s.handleIsCorrect)
	mux.HandleFunc("/api/v1/tokenize", s.handleTokenize)
	mux.HandleFunc("/api/v1/check", s.handleCheck)
	mux.HandleFunc("/api/v1/banner", s.handleBanner)
	mux.HandleFunc("/api/v1/info", s.handleInfo)
	mux.HandleFunc("/api/v1/user-word", s.handleUserWord)
	mux.HandleFunc("/api/v1/user-word/", s.handleUserWordDelete)
	if s.metrics != nil && s.metricsPath != "" {
		mux.Handle(s.metricsPath, s.metrics.Handler())
	}
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) record(op string) {
	if s.metrics != nil {
		s.metrics.RecordQuery(op)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

type wordRequest struct {
	Word string `json:"word"`
}

type textRequest struct {
	Text string `json:"text"`
}

// =====================
// Speller
// =====================

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Word      string   `json:"word"`
		NBest     *int     `json:"n_best"`
		MaxWeight *float32 `json:"max_weight"`
		Beam      *float32 `json:"beam"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}
	var opts []options.Options
	if req.NBest != nil {
		opts = append(opts, options.WithNBest(*req.NBest))
	}
	if req.MaxWeight != nil {
		opts = append(opts, options.WithWeightLimit(*req.MaxWeight))
	}
	if req.Beam != nil {
		opts = append(opts, options.WithBeam(*req.Beam))
	}

	start := time.Now()
	res := s.corrector.Speller().Suggest(req.Word, opts...)
	if s.metrics != nil {
		s.metrics.RecordSuggest(time.Since(start), len(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"word":        req.Word,
		"suggestions": res,
	})
}

func (s *Server) handleIsCorrect(w http.ResponseWriter, r *http.Request) {
	var req wordRequest
	if !decode(w, r, &req) {
		return
	}
	s.record("is-correct")
	writeJSON(w, http.StatusOK, map[string]any{
		"word":    req.Word,
		"correct": s.corrector.Speller().IsCorrect(req.Word),
	})
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	s.record("tokenize")
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokenizer.All(req.Text)})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	s.record("check")
	res, err := s.corrector.CheckText(r.Context(), req.Text)
	if err != nil {
		s.log.Error("check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	var req wordRequest
	if !decode(w, r, &req) {
		return
	}
	s.record("banner")
	items, err := s.corrector.Banner(r.Context(), req.Word)
	if err != nil {
		s.log.Error("banner failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []corrector.BannerItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	meta := s.corrector.Speller().Archive().Metadata()
	writeJSON(w, http.StatusOK, map[string]any{
		"locale":      meta.Locale,
		"title":       meta.Title,
		"description": meta.Description,
		"version":     meta.Version,
		"producer":    meta.Producer,
	})
}

// =====================
// User words
// =====================

func (s *Server) handleUserWord(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.corrector.CustomWords(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"words": entries})
	case http.MethodPost:
		var req wordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Word) == "" {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := s.corrector.AddCustomWord(r.Context(), req.Word); err != nil {
			s.userWordError(w, err)
			return
		}
		if s.metrics != nil {
			s.metrics.RecordUserWord("add")
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleUserWordDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	word := strings.TrimPrefix(r.URL.Path, "/api/v1/user-word/")
	if word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}
	if err := s.corrector.RemoveCustomWord(r.Context(), word); err != nil {
		s.userWordError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordUserWord("remove")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) userWordError(w http.ResponseWriter, err error) {
	if errors.Is(err, userdict.ErrEmptyWord) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Error("user dictionary update failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}
