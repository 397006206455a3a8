package waypoint

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
	"github.com/FaRaZ-32729/mushabaBackend/internal/connection"
	"github.com/FaRaZ-32729/mushabaBackend/internal/db"
)

// Publisher is the outbound real-time channel.
type Publisher interface {
	Publish(connectionID, event string, data interface{}) error
}

// Roster lists a connection's active members.
type Roster interface {
	Members(ctx context.Context, connectionID string) ([]connection.Member, error)
}

// Syncer recomputes every member's active waypoints after a mark or
// transfer changes them, persists the per-member snapshots, and pushes
// the new state to connected clients. Per-member failures do not stop
// the sweep over the rest of the roster.
type Syncer struct {
	db      db.Querier
	members Roster
	hub     Publisher
	log     *logrus.Logger
	now     func() time.Time
}

func NewSyncer(db db.Querier, members Roster, hub Publisher, log *logrus.Logger) *Syncer {
	return &Syncer{
		db:      db,
		members: members,
		hub:     hub,
		log:     log,
		now:     time.Now,
	}
}

type SyncResult struct {
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}

// SyncAll resolves and stores the active waypoint snapshot for each
// member, then broadcasts activeWaypointsUpdated. The broadcast is best
// effort.
func (sy *Syncer) SyncAll(ctx context.Context, connectionID string) (SyncResult, error) {
	marks, err := loadMarks(ctx, sy.db, connectionID)
	if err != nil {
		return SyncResult{}, err
	}
	members, err := sy.members.Members(ctx, connectionID)
	if err != nil {
		return SyncResult{}, err
	}

	var res SyncResult
	payload := make(map[string]map[string]Resolution, len(members))
	for _, m := range members {
		resolved := ResolveAll(m.UserID, m.IsOwner(), marks)
		if err := sy.storeSnapshot(ctx, connectionID, m.UserID, resolved); err != nil {
			sy.log.WithError(err).WithFields(logrus.Fields{
				"connection_id": connectionID,
				"user_id":       m.UserID,
			}).Warn("waypoint snapshot failed")
			res.Failed = append(res.Failed, m.UserID)
			continue
		}
		res.Updated++
		payload[m.UserID] = resolved
	}

	if err := sy.hub.Publish(connectionID, "activeWaypointsUpdated", payload); err != nil {
		sy.log.WithError(err).WithField("connection_id", connectionID).Warn("activeWaypointsUpdated broadcast failed")
	}
	return res, nil
}

func (sy *Syncer) storeSnapshot(ctx context.Context, connectionID, userID string, resolved map[string]Resolution) error {
	raw, err := json.Marshal(resolved)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "encode waypoint snapshot", err)
	}
	if _, err := sy.db.Exec(ctx, `
		INSERT INTO member_waypoint_snapshots (connection_id, user_id, waypoints, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (connection_id, user_id)
		DO UPDATE SET waypoints=EXCLUDED.waypoints, updated_at=EXCLUDED.updated_at
	`, connectionID, userID, raw, sy.now()); err != nil {
		return apperr.Wrap(apperr.Storage, "store waypoint snapshot", err)
	}
	return nil
}
