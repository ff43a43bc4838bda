// Package identity authenticates callers of the ledger API.
//
// It provides:
//   - TokenIssuer: issues and verifies HS256 session JWTs (sub, email, role)
//   - RequireUser: Gin middleware enforcing a Bearer session token
//   - RequireRole: Gin middleware enforcing one of a set of roles
//   - OptionalUser: Gin middleware that records the caller when a token is present
package identity

// Roles recognised by the ledger API.
const (
	RoleAdmin     = "admin"
	RoleRegistrar = "registrar" // tourism department staff; may register guides, products and artisans
	RoleTourist   = "tourist"
)

// Anonymous is the actor recorded when authentication is disabled.
const Anonymous = "anonymous"
