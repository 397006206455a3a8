package waypoint

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
)

func samePolicy(p string) PolicyChoice {
	return PolicyChoice{BusStation: p, Hotel: p}
}

func TestTransferUnknownPolicy(t *testing.T) {
	_, svc, _, _ := newWaypointMock(t)

	err := svc.TransferOwnership(context.Background(), "conn-1", "owner-1", "member-1",
		PolicyChoice{BusStation: "coin_flip", Hotel: PolicyKeepPreviousAsGroup})
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransferToSelf(t *testing.T) {
	_, svc, _, _ := newWaypointMock(t)

	err := svc.TransferOwnership(context.Background(), "conn-1", "owner-1", "owner-1", samePolicy(PolicyKeepPreviousAsGroup))
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransferRequiresOwner(t *testing.T) {
	_, svc, dir, _ := newWaypointMock(t)

	err := svc.TransferOwnership(context.Background(), "conn-1", "member-1", "owner-1", samePolicy(PolicyKeepPreviousAsGroup))
	if !apperr.IsKind(err, apperr.Unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(dir.swapped) != 0 {
		t.Fatalf("roles must not change, swapped %v", dir.swapped)
	}
}

func TestTransferUnknownNewOwner(t *testing.T) {
	_, svc, dir, _ := newWaypointMock(t)

	err := svc.TransferOwnership(context.Background(), "conn-1", "owner-1", "stranger", samePolicy(PolicyKeepPreviousAsGroup))
	if !apperr.IsKind(err, apperr.NotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if len(dir.swapped) != 0 {
		t.Fatalf("roles must not change, swapped %v", dir.swapped)
	}
}

func TestTransferKeepPreviousAsGroup(t *testing.T) {
	mock, svc, dir, hub := newWaypointMock(t)

	for _, typ := range Types {
		mock.ExpectExec(`DELETE FROM marked_waypoints`).
			WithArgs("conn-1", typ, ScopePersonal, "member-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(`UPDATE marked_waypoints`).
			WithArgs("conn-1", typ, "member-1", fixedNow, ScopeGroup).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	}
	expectSync(mock, "conn-1", []string{"owner-1", "member-1"})

	if err := svc.TransferOwnership(context.Background(), "conn-1", "owner-1", "member-1", samePolicy(PolicyKeepPreviousAsGroup)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(dir.swapped) != 1 || dir.swapped[0] != [2]string{"owner-1", "member-1"} {
		t.Fatalf("unexpected role swap: %v", dir.swapped)
	}
	if len(hub.events) != 1 || hub.events[0] != "activeWaypointsUpdated" {
		t.Fatalf("expected sync broadcast, got %v", hub.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransferUsePersonalAsGroup(t *testing.T) {
	mock, svc, dir, _ := newWaypointMock(t)

	// no personal bus station: the previous group mark stays untouched
	mock.ExpectQuery(`SELECT id FROM marked_waypoints`).
		WithArgs("conn-1", TypeBusStation, ScopePersonal, "member-1").
		WillReturnError(pgx.ErrNoRows)
	// personal hotel: replaces the group mark and becomes group scoped
	mock.ExpectQuery(`SELECT id FROM marked_waypoints`).
		WithArgs("conn-1", TypeHotel, ScopePersonal, "member-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("p-hotel"))
	mock.ExpectExec(`DELETE FROM marked_waypoints`).
		WithArgs("conn-1", TypeHotel, ScopeGroup).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`UPDATE marked_waypoints`).
		WithArgs("p-hotel", ScopeGroup, "member-1", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectSync(mock, "conn-1", []string{"owner-1", "member-1"})

	if err := svc.TransferOwnership(context.Background(), "conn-1", "owner-1", "member-1", samePolicy(PolicyUsePersonalAsGroup)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(dir.swapped) != 1 {
		t.Fatalf("expected one role swap, got %v", dir.swapped)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransferMixedPolicies(t *testing.T) {
	mock, svc, dir, _ := newWaypointMock(t)

	// bus station promotes the new owner's personal mark
	mock.ExpectQuery(`SELECT id FROM marked_waypoints`).
		WithArgs("conn-1", TypeBusStation, ScopePersonal, "member-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("p-bus"))
	mock.ExpectExec(`DELETE FROM marked_waypoints`).
		WithArgs("conn-1", TypeBusStation, ScopeGroup).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`UPDATE marked_waypoints`).
		WithArgs("p-bus", ScopeGroup, "member-1", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	// hotel keeps the previous group mark, reassigned
	mock.ExpectExec(`DELETE FROM marked_waypoints`).
		WithArgs("conn-1", TypeHotel, ScopePersonal, "member-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`UPDATE marked_waypoints`).
		WithArgs("conn-1", TypeHotel, "member-1", fixedNow, ScopeGroup).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectSync(mock, "conn-1", []string{"owner-1", "member-1"})

	choice := PolicyChoice{BusStation: PolicyUsePersonalAsGroup, Hotel: PolicyKeepPreviousAsGroup}
	if err := svc.TransferOwnership(context.Background(), "conn-1", "owner-1", "member-1", choice); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(dir.swapped) != 1 {
		t.Fatalf("expected one role swap, got %v", dir.swapped)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
