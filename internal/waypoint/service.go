package waypoint

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
	"github.com/FaRaZ-32729/mushabaBackend/internal/connection"
	"github.com/FaRaZ-32729/mushabaBackend/internal/db"
)

// MemberDirectory answers role questions and applies the role swap
// during ownership transfer.
type MemberDirectory interface {
	Members(ctx context.Context, connectionID string) ([]connection.Member, error)
	RoleOf(ctx context.Context, connectionID, userID string) (string, error)
	SwapRoles(ctx context.Context, connectionID, currentOwnerID, newOwnerID string) error
}

// Service owns waypoint marks: creating them, listing them, and
// resolving the active set per viewer. Group-scoped rows store an empty
// user_id so one slot key (connection, type, scope, user) covers both
// scopes.
type Service struct {
	db      db.Querier
	members MemberDirectory
	syncer  *Syncer
	log     *logrus.Logger
	now     func() time.Time
}

func NewService(db db.Querier, members MemberDirectory, syncer *Syncer, log *logrus.Logger) *Service {
	return &Service{
		db:      db,
		members: members,
		syncer:  syncer,
		log:     log,
		now:     time.Now,
	}
}

type MarkInput struct {
	Type      string
	Scope     string
	Name      string
	Latitude  float64
	Longitude float64
	Comment   string
	Images    []string
}

// MarkWaypoint sets or replaces the mark in one slot. Group scope is
// owner-only; marking an occupied slot overwrites the previous mark.
func (s *Service) MarkWaypoint(ctx context.Context, connectionID, userID string, in MarkInput) (*Mark, error) {
	if !ValidType(in.Type) {
		return nil, apperr.New(apperr.Validation, "unknown waypoint type")
	}
	if in.Scope != ScopePersonal && in.Scope != ScopeGroup {
		return nil, apperr.New(apperr.Validation, "scope must be personal or group")
	}

	role, err := s.members.RoleOf(ctx, connectionID, userID)
	if err != nil {
		return nil, err
	}
	if in.Scope == ScopeGroup && role != connection.RoleOwner {
		return nil, apperr.New(apperr.Unauthorized, "only the owner can mark group waypoints")
	}

	slotUser := ""
	if in.Scope == ScopePersonal {
		slotUser = userID
	}
	if _, err := s.db.Exec(ctx, `
		DELETE FROM marked_waypoints
		WHERE connection_id=$1 AND type=$2 AND scope=$3 AND user_id=$4
	`, connectionID, in.Type, in.Scope, slotUser); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "clear waypoint slot", err)
	}

	now := s.now()
	images := in.Images
	if images == nil {
		images = []string{}
	}
	m := &Mark{
		ID:            uuid.NewString(),
		ConnectionID:  connectionID,
		Type:          in.Type,
		Scope:         in.Scope,
		UserID:        slotUser,
		Name:          in.Name,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		Comment:       in.Comment,
		Images:        images,
		MarkedBy:      userID,
		IsOwnerMarked: role == connection.RoleOwner,
		MarkedAt:      now,
		UpdatedAt:     now,
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO marked_waypoints
			(id, connection_id, type, scope, user_id, name, latitude, longitude,
			 comment, images, marked_by, is_owner_marked, marked_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, m.ID, m.ConnectionID, m.Type, m.Scope, m.UserID, m.Name, m.Latitude, m.Longitude,
		m.Comment, m.Images, m.MarkedBy, m.IsOwnerMarked, m.MarkedAt, m.UpdatedAt); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "insert waypoint", err)
	}

	if _, err := s.syncer.SyncAll(ctx, connectionID); err != nil {
		s.log.WithError(err).WithField("connection_id", connectionID).Warn("waypoint sync after mark failed")
	}
	return m, nil
}

// Marks lists every mark on the connection, oldest first.
func (s *Service) Marks(ctx context.Context, connectionID string) ([]Mark, error) {
	return loadMarks(ctx, s.db, connectionID)
}

// ActiveWaypoints resolves the active waypoint of each type as seen by
// viewerID.
func (s *Service) ActiveWaypoints(ctx context.Context, connectionID, viewerID string) (map[string]Resolution, error) {
	role, err := s.members.RoleOf(ctx, connectionID, viewerID)
	if err != nil {
		return nil, err
	}
	marks, err := loadMarks(ctx, s.db, connectionID)
	if err != nil {
		return nil, err
	}
	return ResolveAll(viewerID, role == connection.RoleOwner, marks), nil
}

func loadMarks(ctx context.Context, q db.Querier, connectionID string) ([]Mark, error) {
	rows, err := q.Query(ctx, `
		SELECT id, connection_id, type, scope, user_id, name, latitude, longitude,
		       comment, images, marked_by, is_owner_marked, marked_at, updated_at
		FROM marked_waypoints
		WHERE connection_id=$1
		ORDER BY marked_at
	`, connectionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "list waypoints", err)
	}
	defer rows.Close()

	var marks []Mark
	for rows.Next() {
		var m Mark
		if err := rows.Scan(&m.ID, &m.ConnectionID, &m.Type, &m.Scope, &m.UserID, &m.Name,
			&m.Latitude, &m.Longitude, &m.Comment, &m.Images, &m.MarkedBy,
			&m.IsOwnerMarked, &m.MarkedAt, &m.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Storage, "scan waypoint", err)
		}
		marks = append(marks, m)
	}
	return marks, nil
}
