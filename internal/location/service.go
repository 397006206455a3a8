package location

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
	"github.com/FaRaZ-32729/mushabaBackend/internal/connection"
)

// Publisher is the outbound real-time channel.
type Publisher interface {
	Publish(connectionID, event string, data interface{}) error
}

// MemberLister resolves a connection's active membership.
type MemberLister interface {
	Members(ctx context.Context, connectionID string) ([]connection.Member, error)
}

// Service ties the volatile cache and the durable store together: pings
// land in both, reads prefer the cache and fall back to the store.
type Service struct {
	cache   *Cache
	store   *Store
	members MemberLister
	hub     Publisher
	log     *logrus.Logger
	ttl     time.Duration
	now     func() time.Time
}

func NewService(cache *Cache, store *Store, members MemberLister, hub Publisher, ttl time.Duration, log *logrus.Logger) *Service {
	return &Service{
		cache:   cache,
		store:   store,
		members: members,
		hub:     hub,
		log:     log,
		ttl:     ttl,
		now:     time.Now,
	}
}

// UpdateLocation processes one ping: cache first, then the durable
// store, then a best-effort position broadcast. A failed durable write
// degrades the result (Persisted=false) instead of failing the ping —
// the cache entry stays valid until the next successful write.
func (s *Service) UpdateLocation(ctx context.Context, connectionID, userID string, sample PositionSample) (UpdateResult, error) {
	sample.UserID = userID
	sample.Online = true
	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}

	s.cache.Put(userID, sample)

	persisted := true
	if err := s.persist(ctx, connectionID, sample); err != nil {
		persisted = false
		s.log.WithError(err).WithFields(logrus.Fields{
			"component":     "location",
			"user_id":       userID,
			"connection_id": connectionID,
		}).Warn("durable write failed, serving from cache only")
	}

	if err := s.hub.Publish(connectionID, "locationUpdate", map[string]interface{}{
		"user_id":       userID,
		"connection_id": connectionID,
		"latitude":      sample.Latitude,
		"longitude":     sample.Longitude,
		"online":        true,
		"timestamp":     sample.Timestamp,
	}); err != nil {
		s.log.WithError(err).WithField("connection_id", connectionID).Warn("position broadcast failed")
	}

	return UpdateResult{Sample: sample, Persisted: persisted}, nil
}

func (s *Service) persist(ctx context.Context, connectionID string, sample PositionSample) error {
	if err := s.store.EnsureExists(ctx, connectionID); err != nil {
		return err
	}
	return s.store.UpsertMemberSample(ctx, connectionID, sample)
}

// GetUserLocation is the hybrid read: fresh cache entry wins, otherwise
// the durable store answers tagged with staleness. Store reads are never
// promoted back into the cache.
func (s *Service) GetUserLocation(ctx context.Context, userID string) (Resolved, error) {
	if s.cache.IsFresh(userID) {
		entry, _ := s.cache.Get(userID)
		return Resolved{Sample: entry.Sample, Source: SourceCache, IsStale: false}, nil
	}

	sample, err := s.store.CurrentSample(ctx, userID)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{
		Sample:  sample,
		Source:  SourceStore,
		IsStale: s.now().Sub(sample.Timestamp) > s.ttl,
	}, nil
}

// GetGroupLocations resolves every member of the connection. Members
// with no location data anywhere are skipped.
func (s *Service) GetGroupLocations(ctx context.Context, connectionID string) ([]Resolved, error) {
	members, err := s.members.Members(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	resolved := make([]Resolved, 0, len(members))
	for _, m := range members {
		r, err := s.GetUserLocation(ctx, m.UserID)
		if apperr.IsKind(err, apperr.NotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

// MarkOffline flips the user offline in the cache (without evicting)
// and in the durable store. Like UpdateLocation, a failed durable write
// degrades rather than fails.
func (s *Service) MarkOffline(ctx context.Context, userID string) (UpdateResult, error) {
	entry, cached := s.cache.MarkOffline(userID)

	persisted := true
	if _, err := s.store.MarkOffline(ctx, userID); err != nil {
		persisted = false
		s.log.WithError(err).WithFields(logrus.Fields{
			"component": "location",
			"user_id":   userID,
		}).Warn("durable offline update failed")
	}

	if !cached && !persisted {
		return UpdateResult{}, apperr.New(apperr.NotFound, "no location data")
	}
	return UpdateResult{Sample: entry.Sample, Persisted: persisted}, nil
}

// MemoryStatus exposes cache diagnostics.
func (s *Service) MemoryStatus() MemoryStatus {
	return s.cache.Status()
}

// ConnectionHistory is the per-connection analytics view.
type ConnectionHistory struct {
	ConnectionID string          `json:"connection_id"`
	Members      []MemberState   `json:"members"`
	Stats        ConnectionStats `json:"stats"`
}

// History returns member states for a connection, windowed to the last
// given hours, optionally with the raw history samples attached.
func (s *Service) History(ctx context.Context, connectionID string, hours int, includeHistory bool) (ConnectionHistory, error) {
	if hours <= 0 {
		hours = 24
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)

	stats, err := s.store.Stats(ctx, connectionID)
	if apperr.IsKind(err, apperr.NotFound) {
		// connection has never written location data
		return ConnectionHistory{ConnectionID: connectionID, Members: []MemberState{}}, nil
	}
	if err != nil {
		return ConnectionHistory{}, err
	}

	var states []MemberState
	if includeHistory {
		states, err = s.store.MemberHistories(ctx, connectionID, since)
	} else {
		states, err = s.store.MemberStates(ctx, connectionID)
	}
	if err != nil {
		return ConnectionHistory{}, err
	}

	return ConnectionHistory{ConnectionID: connectionID, Members: states, Stats: stats}, nil
}
