package waypoint

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
	"github.com/FaRaZ-32729/mushabaBackend/internal/connection"
)

// Waypoint handling policies for ownership transfer, applied per type.
const (
	// The new owner's personal mark replaces the group mark. Types where
	// the new owner has no personal mark keep the previous group mark.
	PolicyUsePersonalAsGroup = "use_personal_as_group"
	// The previous group mark stays but is reassigned to the new owner;
	// the new owner's personal mark of the same type is dropped.
	PolicyKeepPreviousAsGroup = "keep_previous_as_group"
)

func ValidPolicy(p string) bool {
	return p == PolicyUsePersonalAsGroup || p == PolicyKeepPreviousAsGroup
}

// PolicyChoice carries one policy per waypoint type, so the new owner
// can keep the previous hotel while promoting their own bus station.
type PolicyChoice struct {
	BusStation string `json:"bus_station"`
	Hotel      string `json:"hotel"`
}

func (p PolicyChoice) For(typ string) string {
	switch typ {
	case TypeBusStation:
		return p.BusStation
	case TypeHotel:
		return p.Hotel
	}
	return ""
}

// TransferOwnership migrates each waypoint type per its chosen policy,
// swaps the owner and member roles, and re-syncs everyone's active
// waypoints.
func (s *Service) TransferOwnership(ctx context.Context, connectionID, currentOwnerID, newOwnerID string, choice PolicyChoice) error {
	for _, typ := range Types {
		if !ValidPolicy(choice.For(typ)) {
			return apperr.New(apperr.Validation, "unknown transfer policy for "+typ)
		}
	}
	if currentOwnerID == newOwnerID {
		return apperr.New(apperr.Validation, "new owner must differ from current owner")
	}

	role, err := s.members.RoleOf(ctx, connectionID, currentOwnerID)
	if err != nil {
		return err
	}
	if role != connection.RoleOwner {
		return apperr.New(apperr.Unauthorized, "only the owner can transfer ownership")
	}
	if _, err := s.members.RoleOf(ctx, connectionID, newOwnerID); err != nil {
		return err
	}

	now := s.now()
	for _, typ := range Types {
		switch choice.For(typ) {
		case PolicyUsePersonalAsGroup:
			err = s.promotePersonal(ctx, connectionID, newOwnerID, typ, now)
		case PolicyKeepPreviousAsGroup:
			err = s.keepPrevious(ctx, connectionID, newOwnerID, typ, now)
		}
		if err != nil {
			return err
		}
	}

	if err := s.members.SwapRoles(ctx, connectionID, currentOwnerID, newOwnerID); err != nil {
		return err
	}

	if _, err := s.syncer.SyncAll(ctx, connectionID); err != nil {
		s.log.WithError(err).WithField("connection_id", connectionID).Warn("waypoint sync after transfer failed")
	}
	return nil
}

// promotePersonal turns the new owner's personal mark into the group
// mark. When the new owner has none of this type, the previous group
// mark is left untouched.
func (s *Service) promotePersonal(ctx context.Context, connectionID, newOwnerID, typ string, now time.Time) error {
	var id string
	err := s.db.QueryRow(ctx, `
		SELECT id FROM marked_waypoints
		WHERE connection_id=$1 AND type=$2 AND scope=$3 AND user_id=$4
	`, connectionID, typ, ScopePersonal, newOwnerID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.Storage, "load personal waypoint", err)
	}

	if _, err := s.db.Exec(ctx, `
		DELETE FROM marked_waypoints
		WHERE connection_id=$1 AND type=$2 AND scope=$3
	`, connectionID, typ, ScopeGroup); err != nil {
		return apperr.Wrap(apperr.Storage, "drop previous group waypoint", err)
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE marked_waypoints
		SET scope=$2, user_id='', marked_by=$3, is_owner_marked=TRUE, updated_at=$4
		WHERE id=$1
	`, id, ScopeGroup, newOwnerID, now); err != nil {
		return apperr.Wrap(apperr.Storage, "promote personal waypoint", err)
	}
	return nil
}

// keepPrevious keeps the group mark in place, reassigned to the new
// owner, and drops the new owner's personal mark of the same type.
func (s *Service) keepPrevious(ctx context.Context, connectionID, newOwnerID, typ string, now time.Time) error {
	if _, err := s.db.Exec(ctx, `
		DELETE FROM marked_waypoints
		WHERE connection_id=$1 AND type=$2 AND scope=$3 AND user_id=$4
	`, connectionID, typ, ScopePersonal, newOwnerID); err != nil {
		return apperr.Wrap(apperr.Storage, "drop personal waypoint", err)
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE marked_waypoints
		SET marked_by=$3, is_owner_marked=TRUE, updated_at=$4
		WHERE connection_id=$1 AND type=$2 AND scope=$5
	`, connectionID, typ, newOwnerID, now, ScopeGroup); err != nil {
		return apperr.Wrap(apperr.Storage, "reassign group waypoint", err)
	}
	return nil
}
