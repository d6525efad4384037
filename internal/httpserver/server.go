// internal/httpserver/server.go
//
// HTTP server wiring for the Waldo Hunt backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/maps", "/leaderboard".
//   - Game endpoints mounted under /game (token-bearing).
//   - Mapping domain errors to JSON error payloads with deterministic
//     precedence: unauthorized before not-found before state guards before
//     input guards.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The server holds no game state; everything lives in the store, so any
//     number of replicas can sit behind one database.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/waldohunt/go-server/internal/catalog"
	"github.com/waldohunt/go-server/internal/config"
	"github.com/waldohunt/go-server/internal/game"
	"github.com/waldohunt/go-server/internal/session"
	"github.com/waldohunt/go-server/internal/token"
)

// Server bundles the router with the game's collaborators.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	catalog  *catalog.Store
	sessions *session.Store
	eval     *game.Evaluator
	codec    *token.Codec
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, cat *catalog.Store, sessions *session.Store, codec *token.Codec) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg,
		catalog:  cat,
		sessions: sessions,
		eval:     game.NewEvaluator(sessions),
		codec:    codec,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFor(cfg.ClientOrigin))       // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"waldo-go","endpoints":["/health","/maps","GET /game/start/{mapId}","POST /game/guess","POST /game/name","GET /game/status","/leaderboard"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Get("/maps", s.handleMaps)
	s.r.Get("/leaderboard", s.handleLeaderboard)

	s.r.Route("/game", func(r chi.Router) {
		r.Get("/start/{mapId}", s.handleStart)
		r.Post("/guess", s.handleGuess)
		r.Post("/name", s.handleName)
		r.Get("/status", s.handleStatus)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ catalog ------------------------------------

// handleMaps lists the playable maps (id, name, url — never hit rectangles).
func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.catalog.ListMaps(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list maps")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(maps)
}

// ---------------------------- leaderboard ----------------------------------

// mapBoard is one map's section of the leaderboard response.
type mapBoard struct {
	MapID   string          `json:"mapId"`
	MapName string          `json:"mapName"`
	Entries []session.Entry `json:"entries"`
}

// handleLeaderboard reaps expired unnamed sessions, then returns the ranked
// named sessions of every map. A failed reap is logged but does not block
// the read; stale rows are filtered by the name predicate anyway.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if n, err := s.sessions.Reap(r.Context(), s.cfg.SessionTTL); err != nil {
		log.Warn().Err(err).Msg("reap sessions")
	} else if n > 0 {
		log.Info().Int64("reaped", n).Msg("reaped expired sessions")
	}

	maps, err := s.catalog.ListMaps(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list maps")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	out := []mapBoard{}
	for _, m := range maps {
		entries, err := s.sessions.Leaderboard(r.Context(), m.ID)
		if err != nil {
			log.Error().Err(err).Str("mapId", m.ID).Msg("leaderboard query")
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		out = append(out, mapBoard{MapID: m.ID, MapName: m.Name, Entries: entries})
	}
	_ = json.NewEncoder(w).Encode(out)
}

// ------------------------------ shared -------------------------------------

// resolveSession implements the guard chain every /game endpoint shares:
// token first (absence and forgery answer identically, so unauthenticated
// callers learn nothing about session existence), then the store lookup.
// Returns nil after writing the response when either guard fails.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sid, err := s.codec.Verify(bearerOrCookie(r, s.cfg.CookieName))
	if err != nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return nil
	}
	sess, err := s.sessions.Get(r.Context(), sid)
	if errors.Is(err, session.ErrNotFound) {
		// Valid token, session reaped or deleted out-of-band: the client
		// should drop its cookie rather than retry.
		http.Error(w, `{"error":"Session not found"}`, http.StatusNotFound)
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("load session")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return nil
	}
	return sess
}
