package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ CrewStore = (*PGStore)(nil)

// PGStore implements CrewStore on PostgreSQL. The memory store remains the
// default; this exists so a real storage engine can be substituted without
// touching authenticator logic.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle (pgx stdlib driver).
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const crewColumns = `employee_id, name, role, department, clearance, airline,
	credential_hash, is_active, failed_attempts, locked_until, last_login_at,
	created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, member *CrewMember) error {
	if member == nil || !ValidEmployeeID(member.EmployeeID) {
		return ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx,
		`insert into crew_members(employee_id, name, role, department, clearance, airline,
			credential_hash, is_active, failed_attempts, locked_until, last_login_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		NormalizeEmployeeID(member.EmployeeID), member.Name, member.Role, member.Department,
		member.Clearance, member.Airline, member.CredentialHash, member.IsActive,
		member.FailedAttempts, member.LockedUntil, member.LastLoginAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGStore) Find(ctx context.Context, employeeID string) (*CrewMember, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+crewColumns+` from crew_members where employee_id=$1`,
		NormalizeEmployeeID(employeeID),
	)
	return scanCrewMember(row)
}

func (s *PGStore) Update(ctx context.Context, member *CrewMember) error {
	if member == nil {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx,
		`update crew_members set name=$2, role=$3, department=$4, clearance=$5,
			airline=$6, credential_hash=$7, is_active=$8, failed_attempts=$9,
			locked_until=$10, last_login_at=$11, updated_at=now()
		 where employee_id=$1`,
		NormalizeEmployeeID(member.EmployeeID), member.Name, member.Role, member.Department,
		member.Clearance, member.Airline, member.CredentialHash, member.IsActive,
		member.FailedAttempts, member.LockedUntil, member.LastLoginAt,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) List(ctx context.Context) ([]*CrewMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+crewColumns+` from crew_members order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CrewMember
	for rows.Next() {
		member, err := scanCrewMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrewMember(row rowScanner) (*CrewMember, error) {
	var (
		member      CrewMember
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
	)
	err := row.Scan(
		&member.EmployeeID, &member.Name, &member.Role, &member.Department,
		&member.Clearance, &member.Airline, &member.CredentialHash, &member.IsActive,
		&member.FailedAttempts, &lockedUntil, &lastLogin,
		&member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		member.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		member.LastLoginAt = &t
	}
	return &member, nil
}
