package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
	"github.com/GriffinCanCode/pushtalk/internal/observe"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator/history"
	"github.com/GriffinCanCode/pushtalk/internal/session"
	"github.com/GriffinCanCode/pushtalk/internal/trace"
	"github.com/GriffinCanCode/pushtalk/internal/transcribe"
)

// Controller is the session engine as seen by the control surface.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Toggle(ctx context.Context) error
	HoldPress(ctx context.Context) error
	HoldRelease(ctx context.Context) error
	Cancel(ctx context.Context)
	SetMode(mode transcribe.Mode) error
	AddDictionaryWords(words ...string) transcribe.Context
	Status() session.Status
}

// History lists recent results.
type History interface {
	Recent(limit int) []history.Entry
}

// Message is an inbound WebSocket command.
type Message struct {
	Type    string `json:"type"`
	Mode    string `json:"mode,omitempty"`
	Target  string `json:"target,omitempty"`
	Pressed bool   `json:"pressed,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ModeRequest is the body of PUT /api/mode.
type ModeRequest struct {
	Mode   string `json:"mode" validate:"required,oneof=dictation translate command"`
	Target string `json:"target" validate:"required_if=Mode translate,max=5"`
}

// DictionaryRequest is the body of POST /api/dictionary.
type DictionaryRequest struct {
	Words []string `json:"words" validate:"required,min=1,max=50,dive,required,max=64"`
}

// HoldRequest is the body of POST /api/recording/hold.
type HoldRequest struct {
	Pressed *bool `json:"pressed" validate:"required"`
}

// ErrorMessage is sent for failed requests and commands.
type ErrorMessage struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctrl     Controller
	history  History
	events   <-chan orchestrator.Event
	metrics  *observe.Metrics
	promHTTP http.Handler
	validate *validator.Validate

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request counts and serves /metrics from h.
func WithMetrics(m *observe.Metrics, h http.Handler) Option {
	return func(s *Server) {
		s.metrics = m
		s.promHTTP = h
	}
}

// New creates a new server.
func New(ctrl Controller, hist History, events <-chan orchestrator.Event, opts ...Option) *Server {
	s := &Server{
		ctrl:       ctrl,
		history:    hist,
		events:     events,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/recording/start", s.action(s.ctrl.Start))
	mux.HandleFunc("POST /api/recording/stop", s.action(s.ctrl.Stop))
	mux.HandleFunc("POST /api/recording/toggle", s.action(s.ctrl.Toggle))
	mux.HandleFunc("POST /api/recording/cancel", s.action(func(ctx context.Context) error {
		s.ctrl.Cancel(ctx)
		return nil
	}))
	mux.HandleFunc("POST /api/recording/hold", s.handleHold)
	mux.HandleFunc("PUT /api/mode", s.handleMode)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/dictionary", s.handleDictionary)
	if s.promHTTP != nil {
		mux.Handle("GET /metrics", s.promHTTP)
	}

	// Apply middleware: trace -> metrics -> CORS
	return corsMiddleware(trace.Middleware(s.metricsMiddleware(mux)))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code. Unwrap keeps hijacking
// available for WebSocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordHTTP(r.Context(), route, rec.status)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

// action adapts a controller call to an endpoint that answers with the
// resulting status.
func (s *Server) action(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			trace.Logger(r.Context()).Info("recording request rejected", "path", r.URL.Path, "error", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.ctrl.Status())
	}
}

func (s *Server) handleHold(w http.ResponseWriter, r *http.Request) {
	var req HoldRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	var err error
	if *req.Pressed {
		err = s.ctrl.HoldPress(r.Context())
	} else {
		err = s.ctrl.HoldRelease(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.setMode(req.Mode, req.Target); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) setMode(name, target string) error {
	mode, err := transcribe.ParseMode(name, target)
	if err != nil {
		return err
	}
	return s.ctrl.SetMode(mode)
}

func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	var req DictionaryRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	tc := s.ctrl.AddDictionaryWords(req.Words...)
	writeJSON(w, http.StatusOK, map[string][]string{"dictionary": tc.Dictionary})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, apperrors.Newf(apperrors.InvalidArgument, "invalid limit %q", v))
			return
		}
		limit = min(n, MaxHistoryLimit)
	}
	writeJSON(w, http.StatusOK, s.history.Recent(limit))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidArgument, "invalid request body")
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.Newf(apperrors.InvalidArgument, "%s fails %q", fe.Field(), fe.Tag())
		}
		return apperrors.Wrap(err, apperrors.InvalidArgument, "invalid request")
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	_ = wsjson.Write(baseCtx, conn, orchestrator.Event{Type: orchestrator.EventStatus, Data: s.ctrl.Status()})

	for {
		var raw json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &raw); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		// Check rate limit
		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{
				Type:    "error",
				Code:    apperrors.RateLimited.String(),
				Message: "rate limit exceeded",
			})
			continue
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		// Use the client's trace_id when given
		ctx := baseCtx
		if tc, ok := trace.ExtractFromJSON(raw); ok {
			ctx = trace.WithContext(ctx, tc)
		}

		if err := s.handleCommand(ctx, msg); err != nil {
			_ = wsjson.Write(ctx, conn, ErrorMessage{
				Type:    "error",
				Code:    apperrors.CodeOf(err).String(),
				Message: err.Error(),
			})
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, msg Message) error {
	ctx, span := trace.StartSpan(ctx, "ws_command")
	defer span.End()
	span.SetAttr("type", msg.Type)

	switch msg.Type {
	case "start":
		return s.ctrl.Start(ctx)
	case "stop":
		return s.ctrl.Stop(ctx)
	case "toggle":
		return s.ctrl.Toggle(ctx)
	case "cancel":
		s.ctrl.Cancel(ctx)
		return nil
	case "hold":
		if msg.Pressed {
			return s.ctrl.HoldPress(ctx)
		}
		return s.ctrl.HoldRelease(ctx)
	case "mode":
		return s.setMode(msg.Mode, msg.Target)
	default:
		return apperrors.Newf(apperrors.InvalidArgument, "unknown command %q", msg.Type)
	}
}

// Broadcast forwards orchestrator events to every WebSocket client until ctx
// is done or the event channel closes.
func (s *Server) Broadcast(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.events:
			if !ok {
				return
			}
			s.mu.RLock()
			for conn := range s.conns {
				go func(c *websocket.Conn) {
					wctx, cancel := context.WithTimeout(ctx, WriteTimeout)
					defer cancel()
					_ = wsjson.Write(wctx, c, evt)
				}(conn)
			}
			s.mu.RUnlock()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	writeJSON(w, httpStatus(code), ErrorMessage{Code: code.String(), Message: err.Error()})
}

func httpStatus(code apperrors.Code) int {
	switch code {
	case apperrors.InvalidArgument, apperrors.UnknownAction:
		return http.StatusBadRequest
	case apperrors.Busy, apperrors.AlreadyRecording:
		return http.StatusConflict
	case apperrors.EmptyRecording:
		return http.StatusUnprocessableEntity
	case apperrors.RateLimited:
		return http.StatusTooManyRequests
	case apperrors.DeviceNotFound, apperrors.Unavailable, apperrors.StreamError:
		return http.StatusServiceUnavailable
	case apperrors.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
