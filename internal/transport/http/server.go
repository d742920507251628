// Package http exposes the sequencer's submission boundary over plain HTTP:
// SubmitTx, and read-only query endpoints over the in-memory chain. The
// transport itself is kept separate from the sequencer's consensus logic —
// this package is one conforming choice among several (an in-process channel
// or RPC framework would serve equally).
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
	"github.com/sergerad/nolemma/internal/sequencer"
	"github.com/sergerad/nolemma/internal/transport/middleware"
	"github.com/sergerad/nolemma/internal/transport/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Server is the HTTP + WebSocket front door to the sequencer's Engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// RateLimit configures the optional per-client submission throttle.
type RateLimit struct {
	Limiter domain.RateLimiter // nil disables rate limiting
	Limit   int
	Window  time.Duration
}

// NewServer wires up the submit/query routes, the optional rate limiter, and
// the WebSocket broadcast hub (if provided) on a fresh ServeMux.
func NewServer(cfg Config, engine *sequencer.Engine, wsHub *ws.Hub, rl RateLimit, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	h := &handlers{engine: engine, rateLimit: rl, logger: logger}

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /tx", h.submitTx)
	mux.HandleFunc("GET /head", h.head)
	mux.HandleFunc("GET /block/{number}", h.getBlock)
	mux.HandleFunc("POST /verify", h.verifyBlock)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var handler http.Handler = mux
	handler = middleware.Auth(cfg.APIKey)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("transport/http: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("transport/http: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("transport/http: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("transport/http: shutdown: %w", err)
	}
	return nil
}

type handlers struct {
	engine    *sequencer.Engine
	rateLimit RateLimit
	logger    *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type submitResponse struct {
	Hash   string `json:"hash,omitempty"`
	Sender string `json:"sender,omitempty"`
	Error  string `json:"error,omitempty"`
}

// submitTx implements SubmitTx(bytes) -> Ack | Err(kind). The request body
// is the raw canonical transaction encoding, not JSON.
func (h *handlers) submitTx(w http.ResponseWriter, r *http.Request) {
	if h.rateLimit.Limiter != nil {
		allowed, err := h.rateLimit.Limiter.Allow(r.Context(), clientKey(r), h.rateLimit.Limit, h.rateLimit.Window)
		if err != nil {
			h.logger.Warn("rate limiter unavailable, allowing request", slog.String("error", err.Error()))
		} else if !allowed {
			writeJSON(w, http.StatusTooManyRequests, submitResponse{Error: "rate limited"})
			return
		}
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: "read body: " + err.Error()})
		return
	}

	tx, err := encoding.DecodeTransaction(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: err.Error()})
		return
	}

	hash, sender, err := h.engine.Submit(tx)
	if err != nil {
		writeJSON(w, http.StatusConflict, submitResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{Hash: hash.Hex(), Sender: sender.Hex()})
}

func (h *handlers) head(w http.ResponseWriter, r *http.Request) {
	block := h.engine.Chain().Head()
	if block == nil {
		http.Error(w, "no blocks sealed yet", http.StatusNotFound)
		return
	}
	raw, err := encoding.EncodeBlock(block)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(raw)
}

func (h *handlers) getBlock(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseUint(r.PathValue("number"), 10, 64)
	if err != nil {
		http.Error(w, "invalid block number", http.StatusBadRequest)
		return
	}
	block := h.engine.Chain().Get(number)
	if block == nil {
		http.Error(w, "block not found", http.StatusNotFound)
		return
	}
	raw, err := encoding.EncodeBlock(block)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(raw)
}

type verifyResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// verifyBlock accepts a single canonically-encoded block and checks it
// against this engine's own chain at the matching block number, per the
// one-shot sequencer.VerifyBlock (it does not check the withdrawals root in
// isolation — see sequencer.Verifier for full-chain replay verification).
func (h *handlers) verifyBlock(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: err.Error()})
		return
	}
	block, err := encoding.DecodeBlock(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: err.Error()})
		return
	}

	var expectedParent *domain.Hash
	if block.Number() > 0 {
		parent := h.engine.Chain().Get(block.Number() - 1)
		if parent == nil {
			writeJSON(w, http.StatusOK, verifyResponse{Valid: false, Error: "parent block unknown"})
			return
		}
		d := encoding.HeaderDigest(&parent.SignedHeader.Header)
		expectedParent = &d
	}

	valid := sequencer.VerifyBlock(block, expectedParent, block.Number(), h.engine.Address())
	writeJSON(w, http.StatusOK, verifyResponse{Valid: valid})
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.Split(fwd, ",")[0]
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}
				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
