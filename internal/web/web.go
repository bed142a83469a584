// Package web exposes the scheduling engine over HTTP.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"gamecal/internal/config"
	"gamecal/internal/ics"
	appLog "gamecal/internal/log"
	"gamecal/internal/model"
	"gamecal/internal/schedule"
	"gamecal/internal/snapshot"
)

// suggestionsCacheTTL bounds how long a ranked list is reused for the same
// snapshot version and query.
const suggestionsCacheTTL = 30 * time.Second

// SnapshotSource hands out the current snapshot; *snapshot.Store implements it.
type SnapshotSource interface {
	Current() (*snapshot.Snapshot, error)
}

// Server provides the read-only scheduling API.
type Server struct {
	cfg    *config.Config
	source SnapshotSource
	loc    *time.Location
	now    func() time.Time
	mux    *http.ServeMux

	// In-memory cache for /api/suggestions, keyed by snapshot version,
	// today and query.
	suggestMu    sync.RWMutex
	suggestCache map[string]suggestionsCache
}

type suggestionsCache struct {
	resp      suggestionsResponse
	updatedAt time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, source SnapshotSource, opts ...Option) *Server {
	s := &Server{
		cfg:          cfg,
		source:       source,
		loc:          cfg.Location(),
		now:          time.Now,
		mux:          http.NewServeMux(),
		suggestCache: make(map[string]suggestionsCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return requestLogMiddleware(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/window", s.handleWindow)
	s.mux.HandleFunc("GET /api/suggestions", s.handleSuggestions)
	s.mux.HandleFunc("GET /api/completion", s.handleCompletion)
	s.mux.HandleFunc("GET /api/bulk-dates", s.handleBulkDates)
	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
}

// statusRecorder remembers the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

// today is the current calendar day in the configured timezone.
func (s *Server) today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// currentSnapshot writes 503 and returns false when nothing is loaded yet.
func (s *Server) currentSnapshot(w http.ResponseWriter) (*snapshot.Snapshot, bool) {
	snap, err := s.source.Current()
	if err != nil {
		appLog.Warn("snapshot unavailable", "error", err.Error())
		writeError(w, http.StatusServiceUnavailable, "snapshot not loaded")
		return nil, false
	}
	return snap, true
}

// windowResponse is the JSON response shape for /api/window.
type windowResponse struct {
	Today model.Date   `json:"today"`
	Dates []model.Date `json:"dates"`
}

// handleWindow lists the candidate dates from today.
func (s *Server) handleWindow(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	today := s.today()
	dates, err := schedule.Window(schedule.WindowFor(snap.Game), today)
	if err != nil {
		writeEngineError(w, "window", err)
		return
	}
	writeJSON(w, http.StatusOK, windowResponse{Today: today, Dates: dates})
}

// suggestionsResponse is the JSON response shape for /api/suggestions.
type suggestionsResponse struct {
	Today       model.Date            `json:"today"`
	Order       schedule.Order        `json:"order"`
	MinPlayers  int                   `json:"min_players"`
	Version     string                `json:"version"`
	Suggestions []schedule.Suggestion `json:"suggestions"`
}

// handleSuggestions returns candidate dates ranked by availability.
//
// GET /api/suggestions?min_players=3&order=ranked
//   - min_players: threshold, default from config; 0 disables it
//   - order:       ranked (default) or chronological
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minPlayers, err := parseIntDefault(q.Get("min_players"), s.cfg.MinPlayers)
	if err != nil || minPlayers < 0 {
		writeError(w, http.StatusBadRequest, "min_players must be a non-negative integer")
		return
	}
	order, err := schedule.ParseOrder(q.Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	today := s.today()

	key := fmt.Sprintf("%s|%s|%d|%s", snap.Version, today, minPlayers, order)
	cacheNow := s.now()
	s.suggestMu.RLock()
	sc, hit := s.suggestCache[key]
	s.suggestMu.RUnlock()
	if hit && cacheNow.Sub(sc.updatedAt) < suggestionsCacheTTL {
		writeJSON(w, http.StatusOK, sc.resp)
		return
	}

	suggestions, err := schedule.Suggest(schedule.SuggestInput{
		Game:         snap.Game,
		Players:      snap.Players,
		Availability: snap.Availability,
		MinPlayers:   minPlayers,
		Order:        order,
		Today:        today,
	})
	if err != nil {
		writeEngineError(w, "suggestions", err)
		return
	}

	resp := suggestionsResponse{
		Today:       today,
		Order:       order,
		MinPlayers:  minPlayers,
		Version:     snap.Version,
		Suggestions: suggestions,
	}

	s.suggestMu.Lock()
	for k, v := range s.suggestCache {
		if cacheNow.Sub(v.updatedAt) >= suggestionsCacheTTL {
			delete(s.suggestCache, k)
		}
	}
	s.suggestCache[key] = suggestionsCache{resp: resp, updatedAt: cacheNow}
	s.suggestMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// completionResponse is the JSON response shape for /api/completion.
type completionResponse struct {
	Today      model.Date     `json:"today"`
	Completion map[string]int `json:"completion"`
}

func (s *Server) handleCompletion(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	today := s.today()

	ids := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		ids = append(ids, p.ID)
	}
	completion, err := schedule.Completion(ids, schedule.WindowFor(snap.Game), snap.Availability, today)
	if err != nil {
		writeEngineError(w, "completion", err)
		return
	}
	writeJSON(w, http.StatusOK, completionResponse{Today: today, Completion: completion})
}

// bulkDatesResponse is the JSON response shape for /api/bulk-dates.
type bulkDatesResponse struct {
	Player string       `json:"player"`
	Filter string       `json:"filter"`
	Month  string       `json:"month"`
	Dates  []model.Date `json:"dates"`
}

// handleBulkDates previews which dates of one month a bulk status change
// would touch for a player.
//
// GET /api/bulk-dates?player=alice&filter=remaining&month=2025-02
//   - filter: "remaining" or a weekday number 0-6 (0 = Sunday)
//   - month:  YYYY-MM, default is the current month
func (s *Server) handleBulkDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	playerID := q.Get("player")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "player is required")
		return
	}
	filter, err := schedule.ParseBulkFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	today := s.today()
	year, month := today.Year, today.Month
	if m := q.Get("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		year, month = t.Year(), t.Month()
	}

	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	if !hasPlayer(snap.Players, playerID) {
		writeError(w, http.StatusNotFound, "unknown player")
		return
	}

	dates, err := schedule.FilterBulkDates(schedule.BulkInput{
		Filter:       filter,
		Dates:        schedule.MonthDates(year, month),
		PlayWeekdays: snap.Game.PlayWeekdays,
		SpecialDates: snap.Game.SpecialDates,
		Existing:     schedule.RecordsByDate(snap.Availability, playerID),
		Today:        today,
	})
	if err != nil {
		writeEngineError(w, "bulk dates", err)
		return
	}

	writeJSON(w, http.StatusOK, bulkDatesResponse{
		Player: playerID,
		Filter: filter.String(),
		Month:  fmt.Sprintf("%04d-%02d", year, int(month)),
		Dates:  dates,
	})
}

// handleCalendar exports the confirmed sessions as an iCalendar document.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	body := RenderCalendar(s.cfg, snap, s.now())

	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", CalendarFilename(snap.Game.Title)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// RenderCalendar renders snap's confirmed sessions with the calendar
// settings from cfg.
func RenderCalendar(cfg *config.Config, snap *snapshot.Snapshot, now time.Time) string {
	game := snap.Game
	if game.Timezone == "" && cfg.Calendar.UseDefaultTimezone {
		game.Timezone = cfg.Timezone
	}
	events := ics.EventsFromSessions(game, snap.Sessions, cfg.Calendar.Description, cfg.Calendar.Location)
	return ics.Render(events, now, ics.RenderOptions{
		ProductID: cfg.Calendar.ProductID,
		UIDDomain: cfg.Calendar.UIDDomain,
	})
}

// CalendarFilename derives "<slug>.ics" from a game title.
func CalendarFilename(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "calendar"
	}
	return slug + ".ics"
}

func hasPlayer(players []model.Player, id string) bool {
	for _, p := range players {
		if p.ID == id {
			return true
		}
	}
	return false
}

func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// writeEngineError maps engine input errors to 400 and anything else to 500.
func writeEngineError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, schedule.ErrInvalidInput) {
		appLog.Warn("api "+op+": invalid input", "error", err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	appLog.Error("api "+op+" failed", err)
	writeError(w, http.StatusInternalServerError, "failed to compute "+op)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
