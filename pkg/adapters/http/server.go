// Package http exposes the engine as a messaging webhook.
package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/malcolmmathew-zz/bot-engine/internal/logging"
	"github.com/malcolmmathew-zz/bot-engine/internal/presentation/graph"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes bounds the size of an accepted webhook body.
const DefaultMaxBodyBytes = 1 << 20

// SignatureHeader carries the HMAC-SHA256 of the body keyed by the app secret.
const SignatureHeader = "X-Hub-Signature-256"

// Engine is the part of the bot engine the webhook needs.
type Engine interface {
	HandleEvent(ctx context.Context, raw domain.RawEvent) (*domain.Result, error)
	Graph() *domain.FlowGraph
}

// Server serves the webhook and its operational endpoints.
type Server struct {
	Engine      Engine
	verifyToken string
	appSecret   string
	gatherer    prometheus.Gatherer
	maxBody     int64
	logger      *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithVerifyToken sets the token expected by the subscription handshake.
func WithVerifyToken(token string) Option {
	return func(s *Server) {
		s.verifyToken = token
	}
}

// WithAppSecret enables signature checks on POST /webhook.
func WithAppSecret(secret string) Option {
	return func(s *Server) {
		s.appSecret = secret
	}
}

// WithMetrics exposes the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		maxBody: DefaultMaxBodyBytes,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/webhook", s.Verify)
	r.Post("/webhook", s.Webhook)
	r.Post("/events", s.Events)
	r.Get("/graph", s.GetGraph)
	r.Get("/health", s.GetHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SignatureHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Verify answers the platform's subscription handshake by echoing
// hub.challenge when hub.verify_token matches.
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || s.verifyToken == "" ||
		!hmac.Equal([]byte(q.Get("hub.verify_token")), []byte(s.verifyToken)) {
		s.logger.Warn("webhook verification failed", "mode", q.Get("hub.mode"))
		http.Error(w, "Verification token mismatch", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, q.Get("hub.challenge"))
}

// Webhook handles the POST /webhook request carrying a page envelope.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if s.appSecret != "" && !validSignature(s.appSecret, body, r.Header.Get(SignatureHeader)) {
		s.logger.Warn("webhook signature mismatch")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Webhook: Invalid request body", "err", err)
		return
	}
	if env.Object != "page" {
		http.Error(w, "Unsupported object", http.StatusNotFound)
		return
	}

	for _, raw := range env.RawEvents() {
		if _, err := s.Engine.HandleEvent(r.Context(), raw); err != nil {
			s.logger.Error("Webhook: event failed", "user_id", raw.SenderID, "event_id", raw.EventID, "err", err)
			http.Error(w, "Event processing failed", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, "EVENT_RECEIVED")
}

// EventResult reports what one event of POST /events did.
type EventResult struct {
	UserID      string         `json:"user_id"`
	Kind        string         `json:"kind"`
	Outcome     domain.Outcome `json:"outcome,omitempty"`
	ContentKeys []string       `json:"content_keys"`
	Records     int            `json:"records"`
	Reason      string         `json:"reason,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Events handles the POST /events request: a flat array of raw events,
// processed in order. Any failed event turns the status into 500.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var events []domain.RawEvent
	if err := json.Unmarshal(body, &events); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Events: Invalid request body", "err", err)
		return
	}

	status := http.StatusOK
	results := make([]EventResult, 0, len(events))
	for _, raw := range events {
		out := EventResult{UserID: raw.SenderID, Kind: raw.Kind, ContentKeys: []string{}}
		res, err := s.Engine.HandleEvent(r.Context(), raw)
		switch {
		case err != nil:
			status = http.StatusInternalServerError
			out.Error = err.Error()
			s.logger.Error("Events: event failed", "user_id", raw.SenderID, "err", err)
		default:
			out.Kind = string(res.Event.Kind)
			out.Outcome = res.Outcome
			out.Records = len(res.Records)
			if res.ContentKeys != nil {
				out.ContentKeys = res.ContentKeys
			}
			if res.Reason != nil {
				out.Reason = res.Reason.Error()
			}
		}
		results = append(results, out)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(results); err != nil {
		s.logger.Error("Events response encode failed", "err", err)
	}
}

// GetGraph handles the GET /graph request with a Mermaid flowchart.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if current := r.URL.Query().Get("current"); current != "" {
		overlay = &graph.GraphOverlay{CurrentNode: current}
	}
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, graph.GenerateMermaid(s.Engine.Graph(), overlay))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, header string) bool {
	got, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
