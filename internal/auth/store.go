package auth

import "context"

// CrewStore describes persistence operations required by the authenticator.
// Implementations must serialize the read-modify-write of failure counters;
// the memory store does this with a mutex, a SQL store with row updates.
type CrewStore interface {
	Create(ctx context.Context, member *CrewMember) error
	Find(ctx context.Context, employeeID string) (*CrewMember, error)
	Update(ctx context.Context, member *CrewMember) error
	List(ctx context.Context) ([]*CrewMember, error)
}
