package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func crewRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"employee_id", "name", "role", "department", "clearance", "airline",
		"credential_hash", "is_active", "failed_attempts", "locked_until",
		"last_login_at", "created_at", "updated_at",
	})
}

func TestPGStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select .* from crew_members where employee_id=").
		WithArgs("AA12345").
		WillReturnRows(crewRows().AddRow(
			"AA12345", "Dana Reyes", "captain", "flight_operations", 4, "crewlink-air",
			"$2a$12$hash", true, 0, nil, nil, created, created,
		))

	store := NewPGStore(db)
	member, err := store.Find(context.Background(), "aa12345")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if member.EmployeeID != "AA12345" || member.Role != RoleCaptain || member.Clearance != 4 {
		t.Fatalf("unexpected member: %+v", member)
	}
	if member.LockedUntil != nil || member.LastLoginAt != nil {
		t.Fatalf("nullable timestamps should be nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select .* from crew_members where employee_id=").
		WithArgs("ZZ99999").
		WillReturnError(sql.ErrNoRows)

	store := NewPGStore(db)
	if _, err := store.Find(context.Background(), "ZZ99999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into crew_members").
		WithArgs("AA12345", "Dana Reyes", RoleCaptain, DeptFlightOps, 4, "",
			"$2a$12$hash", true, 0, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGStore(db)
	err = store.Create(context.Background(), &CrewMember{
		EmployeeID:     "AA12345",
		Name:           "Dana Reyes",
		Role:           RoleCaptain,
		Department:     DeptFlightOps,
		Clearance:      4,
		CredentialHash: "$2a$12$hash",
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreUpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update crew_members set").
		WithArgs("ZZ99999", "", Role(""), Department(""), 0, "", "", false, 0, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	err = store.Update(context.Background(), &CrewMember{EmployeeID: "ZZ99999"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
