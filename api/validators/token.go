package validators

import (
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

// BearerToken extracts the token from an Authorization header value. A bare token
// without the scheme is accepted.
func BearerToken(raw string) (string, error) {
	parts := strings.Fields(raw)
	switch {
	case len(parts) == 2 && strings.EqualFold(parts[0], "bearer"):
		return parts[1], nil
	case len(parts) == 1 && !strings.EqualFold(parts[0], "bearer"):
		return parts[0], nil
	}
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}
