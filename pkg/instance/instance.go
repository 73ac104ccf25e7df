package instance

import "github.com/angelmondragon/storefront-core/pkg/env"

// GetID returns the API instance identifier, preferring an explicit id over the
// platform-provided dyno or host name.
func GetID() string {
	return env.First("local", "STOREFRONT_INSTANCE_ID", "DYNO", "HOSTNAME")
}
