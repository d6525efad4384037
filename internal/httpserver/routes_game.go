// internal/httpserver/routes_game.go
//
// HTTP routes for the game session lifecycle.
// Exposes four endpoints under /game:
//   - GET  /game/start/{mapId} → create a session, issue a token + cookies
//   - POST /game/guess         → submit a coordinate guess
//   - POST /game/name          → claim a completed session with a name
//   - GET  /game/status        → elapsed time of a completed session
//
// The token travels either as an Authorization bearer header or an HttpOnly
// cookie. A second, JS-readable "game" cookie carries no sensitive data and
// only lets the frontend key its state off something.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/waldohunt/go-server/internal/catalog"
	"github.com/waldohunt/go-server/internal/session"
)

// maxCoordinate bounds both axes of a guess. One global constant for every
// map; points past it are rejected before the evaluator runs.
const maxCoordinate = 10000

// -----------------------------------------------------------------------------
// /game/start/{mapId}

// publicCharacter is a character as exposed to clients: no hit rectangle.
type publicCharacter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// startRes is returned by /game/start.
type startRes struct {
	Token string   `json:"token"`
	Map   startMap `json:"map"`
}
type startMap struct {
	Name       string            `json:"name"`
	URL        string            `json:"url"`
	Characters []publicCharacter `json:"characters"`
}

// handleStart validates the map, creates an anonymous session, and issues
// its bearer token. The token cookie is HttpOnly; its lifetime is the token
// TTL, which outlives the session TTL so the reaper, not cookie expiry,
// decides when an abandoned game dies.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	mapID := chi.URLParam(r, "mapId")
	m, err := s.catalog.GetMap(r.Context(), mapID)
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, `{"error":"Invalid map ID."}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get map")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	chars, err := s.catalog.CharactersOf(r.Context(), m.ID)
	if err != nil {
		log.Error().Err(err).Msg("list characters")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	sess, err := s.sessions.Create(r.Context(), m.ID)
	if err != nil {
		log.Error().Err(err).Str("mapId", m.ID).Msg("create session")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	tok, exp, err := s.codec.Issue(sess.ID)
	if err != nil {
		log.Error().Err(err).Msg("issue token")
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setGameCookies(w, tok, exp)

	public := make([]publicCharacter, 0, len(chars))
	for _, c := range chars {
		public = append(public, publicCharacter{ID: c.ID, Name: c.Name, URL: c.URL})
	}
	_ = json.NewEncoder(w).Encode(startRes{
		Token: tok,
		Map:   startMap{Name: m.Name, URL: m.URL, Characters: public},
	})
}

// -----------------------------------------------------------------------------
// /game/guess

// guessReq/guessRes payloads for POST /game/guess.
type guessReq struct {
	CharacterID string        `json:"characterId"`
	Point       catalog.Point `json:"point"`
}
type guessRes struct {
	Result string `json:"result"`
}

// handleGuess runs the full guard chain in contract order, then hands the
// decision to the evaluator.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r)
	if sess == nil {
		return
	}
	if sess.Completed() {
		http.Error(w, `{"error":"Game ended"}`, http.StatusForbidden)
		return
	}

	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	// Scoped to the session's map: a character from another map and a
	// character that does not exist answer identically.
	ch, err := s.catalog.CharacterOf(r.Context(), sess.MapID, req.CharacterID)
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, `{"error":"Invalid character"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get character")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	if !inBounds(req.Point) {
		http.Error(w, `{"error":"Invalid coordinates"}`, http.StatusBadRequest)
		return
	}

	total, err := s.catalog.CountCharacters(r.Context(), sess.MapID)
	if err != nil {
		log.Error().Err(err).Msg("count characters")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	verdict, err := s.eval.Evaluate(r.Context(), sess, ch, req.Point, total)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sess.ID).Msg("evaluate guess")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(guessRes{Result: string(verdict)})
}

// inBounds checks the accepted coordinate domain on both axes.
func inBounds(p catalog.Point) bool {
	return p.X >= 0 && p.X <= maxCoordinate && p.Y >= 0 && p.Y <= maxCoordinate
}

// -----------------------------------------------------------------------------
// /game/name

type nameReq struct {
	Name string `json:"name"`
}

// handleName attaches a display name to a completed session, after which it
// is a permanent leaderboard entry.
func (s *Server) handleName(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r)
	if sess == nil {
		return
	}
	if !sess.Completed() {
		http.Error(w, `{"error":"Game in progress"}`, http.StatusForbidden)
		return
	}
	if sess.Named() {
		http.Error(w, `{"error":"Name already set"}`, http.StatusConflict)
		return
	}

	var req nameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	// No trimming: a padded name is not letters-and-digits, so it is
	// rejected rather than silently cleaned up.
	if !validName(req.Name) {
		http.Error(w, `{"error":"Invalid name"}`, http.StatusBadRequest)
		return
	}

	err := s.sessions.ClaimName(r.Context(), sess.ID, req.Name)
	if errors.Is(err, session.ErrNameAlreadySet) {
		http.Error(w, `{"error":"Name already set"}`, http.StatusConflict)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("sessionId", sess.ID).Msg("claim name")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"result": "Name updated"})
}

// validName enforces 1–30 characters, ASCII letters and digits only.
func validName(name string) bool {
	if len(name) == 0 || len(name) > 30 {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// /game/status

type statusRes struct {
	TotalTimeInSeconds string `json:"totalTimeInSeconds"`
	Map                string `json:"map"`
}

// handleStatus reports the elapsed time of a completed session. Reading is
// allowed even after the name is claimed.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r)
	if sess == nil {
		return
	}
	if !sess.Completed() {
		http.Error(w, `{"error":"Game in progress"}`, http.StatusForbidden)
		return
	}

	m, err := s.catalog.GetMap(r.Context(), sess.MapID)
	if err != nil {
		log.Error().Err(err).Str("mapId", sess.MapID).Msg("get map")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(statusRes{
		TotalTimeInSeconds: strconv.FormatInt(*sess.ElapsedSeconds, 10),
		Map:                m.Name,
	})
}

// ------------------------------ cookies ------------------------------------

// setGameCookies writes the HttpOnly token cookie plus the JS-readable
// "game" indicator cookie.
func (s *Server) setGameCookies(w http.ResponseWriter, tok string, exp time.Time) {
	secure := s.cfg.Production
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "game",
		Value:    "active",
		Path:     "/",
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a token from the Authorization header or the
// session cookie.
func bearerOrCookie(r *http.Request, cookieName string) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
