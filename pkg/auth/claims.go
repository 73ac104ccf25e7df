package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims represents the JWT the marketplace backend issues to customers.
type AccessTokenClaims struct {
	CustomerID string `json:"customer_id"`
	jwt.RegisteredClaims
}

// Customer returns the customer id, falling back to the subject claim.
func (c *AccessTokenClaims) Customer() string {
	if c == nil {
		return ""
	}
	if c.CustomerID != "" {
		return c.CustomerID
	}
	return c.Subject
}
