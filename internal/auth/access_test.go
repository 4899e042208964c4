package auth

import (
	"errors"
	"testing"
)

func claimsFor(role Role, dept Department, clearance int) *Claims {
	return &Claims{Role: role, Department: dept, Clearance: clearance}
}

func TestPredicates(t *testing.T) {
	c := claimsFor(RoleFirstOfficer, DeptFlightOps, 3)

	if !HasRole(c, RoleCaptain, RoleFirstOfficer) {
		t.Fatalf("expected role match")
	}
	if HasRole(c, RoleAdmin) {
		t.Fatalf("unexpected role match")
	}
	if HasRole(nil, RoleAdmin) {
		t.Fatalf("nil claims must never pass")
	}

	if !HasClearance(c, 3) || !HasClearance(c, 1) {
		t.Fatalf("expected clearance >= minimum to pass")
	}
	if HasClearance(c, 4) {
		t.Fatalf("clearance 3 must not satisfy minimum 4")
	}

	if !HasDepartment(c, DeptFlightOps) {
		t.Fatalf("expected department match")
	}
	if HasDepartment(c, DeptSecurity, DeptCabinCrew) {
		t.Fatalf("unexpected department match")
	}
}

func TestAuthorize(t *testing.T) {
	c := claimsFor(RoleFlightAttendant, DeptCabinCrew, 2)

	if err := Authorize(c, Requirement{}); err != nil {
		t.Fatalf("empty requirement should always pass: %v", err)
	}
	if err := Authorize(c, Requirement{Roles: []Role{RoleFlightAttendant}, MinClearance: 2, Departments: []Department{DeptCabinCrew}}); err != nil {
		t.Fatalf("satisfied requirement failed: %v", err)
	}

	err := Authorize(c, Requirement{Roles: []Role{RoleCaptain}})
	if !errors.Is(err, ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
	var roleErr *RoleError
	if !errors.As(err, &roleErr) || roleErr.Actual != RoleFlightAttendant {
		t.Fatalf("role error should carry actual role: %v", err)
	}

	err = Authorize(c, Requirement{MinClearance: 4})
	if !errors.Is(err, ErrInsufficientClearance) {
		t.Fatalf("expected ErrInsufficientClearance, got %v", err)
	}
	var clrErr *ClearanceError
	if !errors.As(err, &clrErr) || clrErr.Required != 4 || clrErr.Actual != 2 {
		t.Fatalf("clearance error should carry required vs actual: %v", err)
	}

	err = Authorize(c, Requirement{Departments: []Department{DeptFlightOps}})
	if !errors.Is(err, ErrDepartmentRestricted) {
		t.Fatalf("expected ErrDepartmentRestricted, got %v", err)
	}

	if err := Authorize(nil, Requirement{MinClearance: 1}); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("nil claims: expected ErrTokenInvalid, got %v", err)
	}
}

func TestEnumValidation(t *testing.T) {
	if !ValidRole("Captain") || !ValidRole(RoleDispatcher) {
		t.Fatalf("expected known roles to validate")
	}
	if ValidRole("wizard") {
		t.Fatalf("unknown role validated")
	}
	if !ValidDepartment("Cabin_Crew") || !ValidDepartment(DeptSecurity) {
		t.Fatalf("expected known departments to validate")
	}
	if ValidDepartment("catering") {
		t.Fatalf("unknown department validated")
	}
	if !ValidEmployeeID("aa12345") || !ValidEmployeeID("UAL1234567") {
		t.Fatalf("expected valid employee ids to pass")
	}
	for _, id := range []string{"A12345", "AAAA123", "AA12", "AA12345678", "12345"} {
		if ValidEmployeeID(id) {
			t.Fatalf("employee id %q should be rejected", id)
		}
	}
}
