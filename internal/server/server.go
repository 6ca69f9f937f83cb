package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/thruflo/rain/internal/auth"
	"github.com/thruflo/rain/internal/logging"
	"github.com/thruflo/rain/internal/store"
)

// Defaults for Config.
const (
	DefaultTokenTTL     = time.Hour
	DefaultMaxBodyBytes = 64 << 20
	cleanupInterval     = time.Minute
)

// Config holds server configuration options.
type Config struct {
	// Addr is the listen address, e.g. "localhost:6000" or ":0".
	Addr string
	// TokenHash is the argon2id hash bearer tokens are verified against.
	TokenHash string
	// Insecure accepts any bearer token, or none. For local testing only.
	Insecure bool
	// Store backs the API; a fresh MemoryStore when nil.
	Store store.Store
	// TokenTTL is how long a verified token skips argon2.
	TokenTTL time.Duration
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64
	RateLimit    RateLimitConfig
}

// Server serves the session store API.
type Server struct {
	addr      string
	tokenHash string
	insecure  bool
	store     store.Store
	tokenTTL  time.Duration
	maxBody   int64
	limiter   *rateLimiter
	log       *logging.Logger
	now       func() time.Time

	mu       sync.RWMutex
	verified map[string]time.Time // token -> cache expiry
	server   *http.Server
	listener net.Listener
	started  bool
}

// NewServer creates a Server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.TokenHash == "" && !cfg.Insecure {
		return nil, errors.New("token hash is required")
	}
	if cfg.TokenHash != "" {
		if err := auth.CheckHash(cfg.TokenHash); err != nil {
			return nil, fmt.Errorf("invalid token hash: %w", err)
		}
	}

	st := cfg.Store
	if st == nil {
		st = store.NewMemoryStore()
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	return &Server{
		addr:      cfg.Addr,
		tokenHash: cfg.TokenHash,
		insecure:  cfg.Insecure,
		store:     st,
		tokenTTL:  ttl,
		maxBody:   maxBody,
		limiter:   newRateLimiter(cfg.RateLimit),
		log:       logging.With("component", "server"),
		now:       time.Now,
		verified:  make(map[string]time.Time),
	}, nil
}

// Start listens and serves until Stop is called. It blocks.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	s.log.Info("listening", "addr", listener.Addr().String(), "insecure", s.insecure)

	go s.cleanupLoop(ctx)

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.started = false
	return nil
}

// ListenAddr returns the address the server is listening on, or "" before
// Start.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the API handler rooted at /api/.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", s.withAuth(s.handleCreate))
	mux.HandleFunc("GET /api/session/{id}", s.withAuth(s.handleFetch))
	mux.HandleFunc("PUT /api/session/{id}", s.withAuth(s.handleUpsert))
	mux.HandleFunc("DELETE /api/session/{id}", s.withAuth(s.handleDelete))
	mux.HandleFunc("GET /api/sessions", s.withAuth(s.handleList))
	return s.withLogging(mux)
}

type tokenKey struct{}

func tokenFrom(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey{}).(string)
	return token
}

// withAuth verifies the bearer token and passes it on in the context.
func (s *Server) withAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok && !s.insecure {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		if !s.insecure && !s.tokenCached(token) {
			ip := extractIP(r)
			v := s.limiter.check(ip)
			if !v.Allowed {
				secs := int(v.RetryAfter.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, v.Reason)
				return
			}

			match, err := auth.VerifyToken(token, s.tokenHash)
			if err != nil {
				s.log.Error("token verification failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !match {
				s.limiter.recordFailure(ip)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			s.limiter.recordSuccess(ip)
			s.cacheToken(token)
		}

		handler(w, r.WithContext(context.WithValue(r.Context(), tokenKey{}, token)))
	}
}

func bearer(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	return token, token != ""
}

func (s *Server) tokenCached(token string) bool {
	s.mu.RLock()
	expiry, ok := s.verified[token]
	s.mu.RUnlock()
	return ok && s.now().Before(expiry)
}

func (s *Server) cacheToken(token string) {
	s.mu.Lock()
	s.verified[token] = s.now().Add(s.tokenTTL)
	s.mu.Unlock()
}

// cleanupLoop drops expired cached tokens and rate limit state.
func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expireTokens()
			s.limiter.cleanup()
		}
	}
}

func (s *Server) expireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for token, expiry := range s.verified {
		if !now.Before(expiry) {
			delete(s.verified, token)
		}
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Create(r.Context(), tokenFrom(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Fetch(r.Context(), tokenFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	size, err := queryInt(r, "size", store.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.store.List(r.Context(), tokenFrom(r), page, size)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), tokenFrom(r), r.PathValue("id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var snap store.Snapshot
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(&snap); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "session too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid session body")
		return
	}

	if snap.ID == "" {
		snap.ID = id
	}
	if snap.ID != id {
		writeError(w, http.StatusBadRequest, "session id does not match path")
		return
	}
	if len(snap.CPU.XRegs) > 32 {
		writeError(w, http.StatusBadRequest, "too many registers")
		return
	}

	if err := s.store.Upsert(r.Context(), tokenFrom(r), snap); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var de *store.DomainError
	if errors.As(err, &de) {
		status := de.Status
		if status < 400 || status > 499 {
			status = http.StatusBadRequest
		}
		writeError(w, status, de.Message)
		return
	}
	s.log.Error("store operation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// writeError writes the {"errors": msg} body the client expects.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"errors": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "elapsed", time.Since(start))
	})
}
