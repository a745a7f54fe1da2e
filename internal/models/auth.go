package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised by the RBAC middleware.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens issued by the identity service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the resolved identity passed explicitly to engine operations.
type Actor struct {
	UserID string
	Role   UserRole
}

// ActorFromClaims extracts the engine identity from token claims.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

// IsStaff reports whether the actor may act on behalf of any student.
func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleTeacher, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// CanActFor reports whether the actor may operate on the given student's records.
func (a Actor) CanActFor(studentID string) bool {
	if a.IsStaff() {
		return true
	}
	return a.Role == RoleStudent && a.UserID != "" && a.UserID == studentID
}
