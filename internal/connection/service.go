package connection

import (
	"context"
	"fmt"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
	"github.com/FaRaZ-32729/mushabaBackend/internal/db"
)

// Service answers membership questions for connections. Identity itself
// (who a user is) is owned elsewhere; this only resolves roles within a
// connection.
type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Members returns the active members of a connection in join order.
func (s *Service) Members(ctx context.Context, connectionID string) ([]Member, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, role, status, joined_at
		FROM connection_members
		WHERE connection_id=$1 AND status=$2
		ORDER BY joined_at
	`, connectionID, StatusActive)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "list members", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Role, &m.Status, &m.JoinedAt); err != nil {
			return nil, apperr.Wrap(apperr.Storage, "scan member", err)
		}
		members = append(members, m)
	}
	if len(members) == 0 {
		return nil, apperr.New(apperr.NotFound, "connection not found")
	}
	return members, nil
}

// RoleOf returns the role of userID in the connection, or a not_found
// error when the user is not an active member.
func (s *Service) RoleOf(ctx context.Context, connectionID, userID string) (string, error) {
	var role string
	err := s.db.QueryRow(ctx, `
		SELECT role FROM connection_members
		WHERE connection_id=$1 AND user_id=$2 AND status=$3
	`, connectionID, userID, StatusActive).Scan(&role)
	if err != nil {
		return "", apperr.Wrap(apperr.NotFound, "user not found in connection", err)
	}
	return role, nil
}

// SwapRoles demotes the current owner and promotes the new owner in a
// single statement, so the connection never observes two owners.
func (s *Service) SwapRoles(ctx context.Context, connectionID, currentOwnerID, newOwnerID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE connection_members
		SET role = CASE user_id WHEN $2 THEN 'member' WHEN $3 THEN 'owner' END
		WHERE connection_id=$1 AND user_id IN ($2,$3)
	`, connectionID, currentOwnerID, newOwnerID)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "swap roles", err)
	}
	if tag.RowsAffected() != 2 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("expected 2 members, updated %d", tag.RowsAffected()))
	}
	return nil
}
