//go:generate go run github.com/abice/go-enum@v0.5.6 --marshal

package domain

// ENUM(unknown, driver, manager)
type Role int

// AuthInfo is the principal resolved from a verified bearer credential.
type AuthInfo struct {
	PrincipalID string `json:"principalId"`
	Role        Role   `json:"role"`
}
