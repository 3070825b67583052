package naming

import "fmt"

// Naming functions for provisioned resources.
// All nodes belonging to a cluster follow a consistent naming pattern so they
// are recognizable in the provider console and in logs.

// Node returns the name of the i-th node of a cluster (1-based).
func Node(cluster string, index int) string {
	return fmt.Sprintf("%s-node-%d", cluster, index)
}

// CredentialDisplayName derives a display name for a stored credential set
// from the provider kind and the identity reported by validation.
func CredentialDisplayName(provider, identity string) string {
	if identity == "" {
		return provider
	}
	return fmt.Sprintf("%s (%s)", provider, identity)
}
