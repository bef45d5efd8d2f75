package auth

import (
	"net/http"
	"strings"
)

// Role represents the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior. Put here so limiter.go
// and gateway.go can reference the shared type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	FrontendKeys   map[string]struct{}
	BackendKeys    map[string]struct{}
	AdminKeys      map[string]struct{}
}

// RoleName returns the wire name written into X-Role-Name.
func RoleName(r Role) string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleAdmin:
		return "admin"
	}
	return "unauth"
}

// DeviceID returns the caller's device scope from X-Device-ID, if any.
func DeviceID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Device-ID"))
}
