package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vtransform/internal/binding"
	"vtransform/internal/hotkey"
	"vtransform/internal/op"
	"vtransform/internal/options"
	"vtransform/internal/validation"
)

// ============================================================================
// HTTP API
// ============================================================================
// Hosts that cannot hold a unix socket (page scripts, settings editors) talk
// to the session over HTTP. Every mutating route goes through the daemon loop
// via sessionClient and answers with the resulting state.
// ============================================================================

// maxBodyBytes bounds request bodies; option snapshots are a few KiB.
const maxBodyBytes = 1 << 20

type apiServer struct {
	logger  *slog.Logger
	session sessionClient
	ws      *Server
}

// newRouter builds the chi router for the API and the style websocket.
func newRouter(logger *slog.Logger, session sessionClient, ws *Server) http.Handler {
	a := &apiServer{logger: logger, session: session, ws: ws}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", a.getState)
		r.Get("/options", a.getOptions)
		r.Put("/options", a.putOptions)
		r.Post("/reset-preset", a.resetPreset)
		r.Get("/presets", a.getPresets)
		r.Post("/classify", a.classify)
		r.Post("/keys", a.pressKey)
		r.Post("/ops/{name}", a.invokeOp)
		r.Post("/elements", a.observeElements)
		r.Post("/page", a.changePage)
		r.Post("/always-on", a.applyAlwaysOn)
		r.Post("/transform-settings", a.patchSettings)
	})

	if ws != nil {
		ws.Register(r, "/ws")
	}
	return r
}

func (a *apiServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ============================================================================
// Handlers
// ============================================================================

func (a *apiServer) getState(w http.ResponseWriter, r *http.Request) {
	snap, err := a.session.Snapshot(r.Context())
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *apiServer) getOptions(w http.ResponseWriter, r *http.Request) {
	snap, err := a.session.Snapshot(r.Context())
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Options)
}

// putOptions merges the body over the current options. Absent keys keep their
// current values.
func (a *apiServer) putOptions(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !json.Valid(raw) {
		a.writeValidation(w, validation.New(validation.ReasonBadSnapshot, "", "body is not valid JSON"))
		return
	}
	o, err := a.session.EditOptions(r.Context(), raw)
	if err != nil {
		a.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *apiServer) resetPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := a.session.ResetToPreset(r.Context(), req.Preset)
	if err != nil {
		a.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type presetView struct {
	Name    string        `json:"name"`
	Hotkeys binding.Table `json:"hotkeys"`
}

func (a *apiServer) getPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presetList())
}

func presetList() []presetView {
	ps := binding.Presets()
	out := make([]presetView, 0, len(ps))
	for _, p := range ps {
		out = append(out, presetView{Name: p.Name, Hotkeys: p.Table})
	}
	return out
}

// classifyRequest labels a table without touching the session. AlwaysOn
// defaults to the shipped mode.
type classifyRequest struct {
	Hotkeys  binding.Table `json:"hotkeys"`
	AlwaysOn hotkey.Mode   `json:"always_on,omitempty"`
}

type classifyResponse struct {
	Preset string `json:"preset"`
}

func (a *apiServer) classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	label, err := classifyTable(req)
	if err != nil {
		a.writeValidation(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{Preset: label})
}

func classifyTable(req classifyRequest) (string, error) {
	mode := hotkey.DefaultMode
	if req.AlwaysOn != "" {
		m, err := hotkey.ParseMode(string(req.AlwaysOn))
		if err != nil {
			return "", err
		}
		mode = m
	}
	o := options.Options{AlwaysOn: mode, Hotkeys: req.Hotkeys}
	return o.PresetLabel(), nil
}

func (a *apiServer) pressKey(w http.ResponseWriter, r *http.Request) {
	var ev hotkey.KeyEvent
	if err := decodeBody(r, &ev); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.session.PressKey(r.Context(), ev)
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *apiServer) invokeOp(w http.ResponseWriter, r *http.Request) {
	o, err := op.Parse(chi.URLParam(r, "name"))
	if err != nil || o == op.Unset {
		if err == nil {
			err = fmt.Errorf("operation %q cannot be invoked", o)
		}
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	a.submitAndSnapshot(w, r, OpInvoked{Op: o})
}

func (a *apiServer) observeElements(w http.ResponseWriter, r *http.Request) {
	var ev ElementsObserved
	if err := decodeBody(r, &ev); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	for i, d := range ev.Elements {
		if d.Width < 0 || d.Height < 0 {
			a.writeError(w, http.StatusBadRequest, fmt.Errorf("elements[%d]: negative dimension", i))
			return
		}
	}
	a.submitAndSnapshot(w, r, ev)
}

func (a *apiServer) changePage(w http.ResponseWriter, r *http.Request) {
	var ev PageChanged
	if err := decodeBody(r, &ev); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.submitAndSnapshot(w, r, ev)
}

func (a *apiServer) applyAlwaysOn(w http.ResponseWriter, r *http.Request) {
	var ev AlwaysOnApplied
	if err := decodeBody(r, &ev); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := hotkey.ParseMode(string(ev.Mode)); err != nil {
		a.writeValidation(w, err)
		return
	}
	a.submitAndSnapshot(w, r, ev)
}

// patchSettings takes the partial settings object as the body.
func (a *apiServer) patchSettings(w http.ResponseWriter, r *http.Request) {
	b, err := readBody(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := options.DecodeSettingsPatch(b); err != nil {
		a.writeValidation(w, err)
		return
	}
	a.submitAndSnapshot(w, r, SettingsPatched{Settings: b})
}

func (a *apiServer) submitAndSnapshot(w http.ResponseWriter, r *http.Request, ev Event) {
	if err := a.session.Send(r.Context(), ev); err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	snap, err := a.session.Snapshot(r.Context())
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ============================================================================
// Encoding helpers
// ============================================================================

type errorBody struct {
	Error   string            `json:"error"`
	Reason  validation.Reason `json:"reason,omitempty"`
	Field   string            `json:"field,omitempty"`
	Message string            `json:"message,omitempty"`
}

func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return b, nil
}

func decodeBody(r *http.Request, v any) error {
	b, err := readBody(r)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *apiServer) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.logger.Warn("http request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeValidation answers 422 with the structured rejection.
func (a *apiServer) writeValidation(w http.ResponseWriter, err error) {
	b := errorBody{Error: err.Error()}
	if ve, ok := validation.As(err); ok {
		b.Reason, b.Field, b.Message = ve.Reason, ve.Field, ve.Message
	}
	writeJSON(w, http.StatusUnprocessableEntity, b)
}

func (a *apiServer) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, errDaemonBusy) {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	a.writeValidation(w, err)
}

// ============================================================================
// Server lifecycle
// ============================================================================

// runHTTPServer serves handler on addr and shuts it down gracefully when ctx
// is canceled.
func runHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	logger.Info("http server listening", "addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		// ListenAndServe returns http.ErrServerClosed on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		_ = <-errCh
		return nil

	case err := <-errCh:
		return err
	}
}
