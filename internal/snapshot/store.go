package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gamecal/internal/ics"
	appLog "gamecal/internal/log"
)

// ErrNotLoaded is returned by Current before the first successful Refresh.
var ErrNotLoaded = errors.New("snapshot not loaded")

// Store keeps the latest valid snapshot. A failed refresh keeps serving the
// previous snapshot.
type Store struct {
	fetcher *Fetcher
	source  string
	now     func() time.Time

	mu      sync.RWMutex
	current *Snapshot
	lastErr error
}

// NewStore creates a Store reading source through fetcher.
func NewStore(fetcher *Fetcher, source string) *Store {
	return &Store{
		fetcher: fetcher,
		source:  source,
		now:     time.Now,
	}
}

// Current returns the latest snapshot.
func (s *Store) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		if s.lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotLoaded, s.lastErr)
		}
		return nil, ErrNotLoaded
	}
	return s.current, nil
}

// Refresh fetches, decodes and validates the snapshot (and its sessions
// feed, if any) and swaps it in.
func (s *Store) Refresh(ctx context.Context) error {
	snap, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		appLog.Error("snapshot refresh failed", err, "source", displaySource(s.source))
		return err
	}

	unchanged := s.current != nil && s.current.Version == snap.Version
	s.current = snap
	if unchanged {
		appLog.Debug("snapshot unchanged", "version", snap.Version)
		return nil
	}
	appLog.Info("snapshot loaded",
		"version", snap.Version,
		"players", len(snap.Players),
		"availability", len(snap.Availability),
		"sessions", len(snap.Sessions),
		"from_cache", snap.FromCache,
	)
	return nil
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	res, err := s.fetcher.Fetch(ctx, s.source)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	doc, err := Decode(res.Body, DetectFormat(res.Source, res.ContentType))
	if err != nil {
		return nil, err
	}

	bodies := [][]byte{res.Body}
	fromCache := res.FromCache
	if doc.SessionsFeed != "" {
		feedSource, err := resolveFeed(s.source, doc.SessionsFeed)
		if err != nil {
			return nil, err
		}
		feed, err := s.fetcher.Fetch(ctx, feedSource)
		if err != nil {
			return nil, fmt.Errorf("fetch sessions feed: %w", err)
		}
		sessions, err := ics.ParseSessions(feed.Body, doc.GameLocation())
		if err != nil {
			return nil, fmt.Errorf("%w: sessions feed: %v", ErrInvalidSnapshot, err)
		}
		doc.Sessions = append(doc.Sessions, sessions...)
		bodies = append(bodies, feed.Body)
		fromCache = fromCache || feed.FromCache
	}

	return &Snapshot{
		Document:  doc,
		Version:   version(bodies...),
		LoadedAt:  s.now(),
		FromCache: fromCache,
	}, nil
}

// resolveFeed locates a sessions feed named by the snapshot at source. A
// remote snapshot may only name http(s) feeds; a local one may also name a
// path, resolved against the snapshot's directory.
func resolveFeed(source, feed string) (string, error) {
	if isRemote(feed) {
		return feed, nil
	}
	if isRemote(source) {
		return "", fmt.Errorf("%w: remote snapshot names local sessions feed %q", ErrInvalidSnapshot, feed)
	}
	if filepath.IsAbs(feed) {
		return feed, nil
	}
	return filepath.Join(filepath.Dir(source), feed), nil
}

// Start schedules Refresh on the standard cron spec until ctx is done.
func (s *Store) Start(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() {
		_ = s.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("snapshot refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("snapshot refresh scheduled", "cron", spec, "timezone", loc.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Debug("snapshot refresh stopped")
	}()
	return nil
}

func displaySource(source string) string {
	if isRemote(source) {
		return redactURL(source)
	}
	return source
}
