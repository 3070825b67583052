// Package tags provides consistent tagging utilities for provisioned resources.
//
// Every resource created by a deploy carries the deployment identifier and a
// managed-by marker, so teardown can rediscover resources through the
// provider's own tag index instead of relying on locally stored lists.
//
// Standard tag keys use the meridian.io domain prefix for namespacing.
package tags

// Standard tag keys for provisioned resources.
const (
	// KeyDeployment identifies which deploy attempt created a resource.
	KeyDeployment = "meridian.io/deployment"

	// KeyCluster identifies which cluster a resource belongs to.
	KeyCluster = "meridian.io/cluster"

	// KeyManagedBy identifies the management system.
	KeyManagedBy = "meridian.io/managed-by"
)

// ManagedByMeridian is the value stamped on every resource this system creates.
const ManagedByMeridian = "meridian"

// ForDeployment returns the tag set applied to every resource created by one
// deploy attempt.
func ForDeployment(deploymentID, clusterName string) map[string]string {
	return map[string]string{
		KeyDeployment: deploymentID,
		KeyCluster:    clusterName,
		KeyManagedBy:  ManagedByMeridian,
	}
}

// SelectorForDeployment returns the tag filter used to rediscover all
// resources created by one deploy attempt.
func SelectorForDeployment(deploymentID string) map[string]string {
	return map[string]string{
		KeyDeployment: deploymentID,
		KeyManagedBy:  ManagedByMeridian,
	}
}
