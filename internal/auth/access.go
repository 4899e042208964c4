package auth

// Pure authorization predicates. No mutation, no I/O; every protected
// operation funnels through these so the rules cannot drift.

// HasRole reports whether the claims carry one of the allowed roles.
func HasRole(claims *Claims, allowed ...Role) bool {
	if claims == nil {
		return false
	}
	for _, role := range allowed {
		if claims.Role == role {
			return true
		}
	}
	return false
}

// HasClearance reports whether the claims meet the minimum clearance level.
func HasClearance(claims *Claims, minimum int) bool {
	return claims != nil && claims.Clearance >= minimum
}

// HasDepartment reports whether the claims carry one of the allowed departments.
func HasDepartment(claims *Claims, allowed ...Department) bool {
	if claims == nil {
		return false
	}
	for _, dept := range allowed {
		if claims.Department == dept {
			return true
		}
	}
	return false
}

// Requirement describes what a protected operation demands of a caller.
// Zero-value fields impose no constraint.
type Requirement struct {
	Roles        []Role
	MinClearance int
	Departments  []Department
}

// Authorize checks the claims against the requirement and returns a typed
// error naming the failed check, carrying required vs actual values.
func Authorize(claims *Claims, req Requirement) error {
	if claims == nil {
		return ErrTokenInvalid
	}
	if len(req.Roles) > 0 && !HasRole(claims, req.Roles...) {
		return &RoleError{Allowed: req.Roles, Actual: claims.Role}
	}
	if req.MinClearance > 0 && !HasClearance(claims, req.MinClearance) {
		return &ClearanceError{Required: req.MinClearance, Actual: claims.Clearance}
	}
	if len(req.Departments) > 0 && !HasDepartment(claims, req.Departments...) {
		return &DepartmentError{Allowed: req.Departments, Actual: claims.Department}
	}
	return nil
}
