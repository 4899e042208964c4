package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"crewlink.aero/internal/obs"
)

const (
	defaultMaxFailures  = 5
	defaultLockDuration = 30 * time.Minute
	minPasswordLength   = 8
)

// Authenticator verifies presented credentials, enforces the
// lockout-after-failures policy, and issues tokens.
type Authenticator struct {
	store        CrewStore
	tokens       *TokenService
	now          func() time.Time
	maxFailures  int
	lockDuration time.Duration

	// mu guards locks; each entry serializes credential mutations for one
	// employee so concurrent attempts cannot under-count failures.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// AuthOption configures Authenticator behavior.
type AuthOption func(*Authenticator)

// WithMaxFailures overrides the consecutive-failure threshold.
func WithMaxFailures(n int) AuthOption {
	return func(a *Authenticator) {
		if n > 0 {
			a.maxFailures = n
		}
	}
}

// WithLockDuration overrides how long an account stays locked.
func WithLockDuration(d time.Duration) AuthOption {
	return func(a *Authenticator) {
		if d > 0 {
			a.lockDuration = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) AuthOption {
	return func(a *Authenticator) {
		if fn != nil {
			a.now = fn
		}
	}
}

// NewAuthenticator wires the credential store and token service together.
func NewAuthenticator(store CrewStore, tokens *TokenService, opts ...AuthOption) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("auth: crew store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	a := &Authenticator{
		store:        store,
		tokens:       tokens,
		now:          time.Now,
		maxFailures:  defaultMaxFailures,
		lockDuration: defaultLockDuration,
		locks:        make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Tokens exposes the underlying token service for verification paths.
func (a *Authenticator) Tokens() *TokenService { return a.tokens }

// lockFor returns the mutex serializing credential mutations for one
// employee. The whole find-verify-update sequence of a login attempt runs
// under it: the store mutex alone only serializes individual calls, which
// would let parallel wrong-password attempts overwrite each other's
// failure counts.
func (a *Authenticator) lockFor(employeeID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[employeeID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[employeeID] = l
	}
	return l
}

// Login verifies credentials and issues a token pair. Unknown employee IDs
// and wrong passwords produce the same error so callers cannot enumerate
// accounts through the login endpoint.
func (a *Authenticator) Login(ctx context.Context, employeeID, password string) (TokenPair, error) {
	employeeID = NormalizeEmployeeID(employeeID)
	if employeeID == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	lock := a.lockFor(employeeID)
	lock.Lock()
	defer lock.Unlock()

	member, err := a.store.Find(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.IncLoginFailure()
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	now := a.now().UTC()
	if member.Locked(now) {
		remaining := member.LockedUntil.Sub(now).Round(time.Second)
		return TokenPair{}, fmt.Errorf("%w: try again in %s", ErrAccountLocked, remaining)
	}
	if !member.IsActive {
		return TokenPair{}, ErrAccountDeactivated
	}

	if err := VerifyPassword(member.CredentialHash, password); err != nil {
		member.FailedAttempts++
		if member.FailedAttempts >= a.maxFailures {
			until := now.Add(a.lockDuration)
			member.LockedUntil = &until
			obs.IncLockout()
		}
		obs.IncLoginFailure()
		if err := a.store.Update(ctx, member); err != nil {
			return TokenPair{}, err
		}
		return TokenPair{}, ErrInvalidCredentials
	}

	member.FailedAttempts = 0
	member.LockedUntil = nil
	member.LastLoginAt = &now
	if err := a.store.Update(ctx, member); err != nil {
		return TokenPair{}, err
	}
	return a.tokens.IssuePair(member)
}

// RegisterInput carries everything needed to enroll a crew member.
type RegisterInput struct {
	EmployeeID string
	Name       string
	Role       Role
	Department Department
	Clearance  int
	Password   string
}

func (in *RegisterInput) validate() error {
	if !ValidEmployeeID(in.EmployeeID) {
		return fmt.Errorf("%w: employee id must be 2-3 letters followed by 3-7 digits", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !ValidRole(in.Role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if !ValidDepartment(in.Department) {
		return fmt.Errorf("%w: unknown department %q", ErrInvalidInput, in.Department)
	}
	if in.Clearance < MinClearance || in.Clearance > MaxClearance {
		return fmt.Errorf("%w: clearance must be between %d and %d", ErrInvalidInput, MinClearance, MaxClearance)
	}
	if len(in.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

// Register enrolls a new crew member and issues their first token pair.
func (a *Authenticator) Register(ctx context.Context, in RegisterInput) (TokenPair, *CrewMember, error) {
	if err := in.validate(); err != nil {
		return TokenPair{}, nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return TokenPair{}, nil, err
	}
	now := a.now().UTC()
	member := &CrewMember{
		EmployeeID:     NormalizeEmployeeID(in.EmployeeID),
		Name:           strings.TrimSpace(in.Name),
		Role:           Role(strings.ToLower(string(in.Role))),
		Department:     Department(strings.ToLower(string(in.Department))),
		Clearance:      in.Clearance,
		CredentialHash: hash,
		IsActive:       true,
		CreatedAt:      now,
	}
	if err := a.store.Create(ctx, member); err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := a.tokens.IssuePair(member)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, member, nil
}

// ChangePassword verifies the current password and replaces the hash,
// resetting lock state and failure counters.
func (a *Authenticator) ChangePassword(ctx context.Context, employeeID, current, updated string) error {
	employeeID = NormalizeEmployeeID(employeeID)

	lock := a.lockFor(employeeID)
	lock.Lock()
	defer lock.Unlock()

	member, err := a.store.Find(ctx, employeeID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(member.CredentialHash, current); err != nil {
		obs.IncLoginFailure()
		return ErrInvalidCredentials
	}
	if len(updated) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := HashPassword(updated)
	if err != nil {
		return err
	}
	member.CredentialHash = hash
	member.FailedAttempts = 0
	member.LockedUntil = nil
	return a.store.Update(ctx, member)
}

// Refresh exchanges a valid refresh token for a rotated pair. The presented
// refresh token stays usable until expiry; single-use semantics are not
// enforced.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := a.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	member, err := a.store.Find(ctx, claims.EmployeeID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrTokenInvalid
		}
		return TokenPair{}, err
	}
	if !member.IsActive {
		return TokenPair{}, ErrTokenInvalid
	}
	return a.tokens.IssuePair(member)
}

// Logout revokes the presented tokens for the remainder of their lifetime.
func (a *Authenticator) Logout(_ context.Context, accessToken, refreshToken string) {
	a.tokens.Revoke(accessToken)
	a.tokens.Revoke(refreshToken)
}

// Deactivate soft-disables an account; the record is kept for audit.
func (a *Authenticator) Deactivate(ctx context.Context, employeeID string) error {
	member, err := a.store.Find(ctx, NormalizeEmployeeID(employeeID))
	if err != nil {
		return err
	}
	member.IsActive = false
	return a.store.Update(ctx, member)
}
