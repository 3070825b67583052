// Package types holds the provider-neutral data types shared by all
// infrastructure adapters: credential sets, node specifications, and the
// provisioning result persisted with each cluster record.
package types

import "fmt"

// Kind identifies one of the supported infrastructure providers.
type Kind string

const (
	// KindAWS provisions EC2 instances.
	KindAWS Kind = "aws"
	// KindAzure provisions Azure virtual machines.
	KindAzure Kind = "azure"
	// KindGCP provisions Compute Engine instances.
	KindGCP Kind = "gcp"
	// KindStatic registers a pre-existing SSH-reachable host.
	KindStatic Kind = "static"
)

// Kinds lists every supported provider.
func Kinds() []Kind {
	return []Kind{KindAWS, KindAzure, KindGCP, KindStatic}
}

// ParseKind validates a provider string against the closed set of kinds.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAWS, KindAzure, KindGCP, KindStatic:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownProvider)
}

// Credentials is a provider-specific bag of secret fields. Only the fields
// relevant to one provider kind are populated at a time.
type Credentials struct {
	// AWS
	AccessKeyID     string `json:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`

	// Azure service principal
	TenantID       string `json:"tenantId,omitempty"`
	ClientID       string `json:"clientId,omitempty"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`

	// GCP service account
	ServiceAccountJSON string `json:"serviceAccountJson,omitempty"`
	ProjectID          string `json:"projectId,omitempty"`

	// Static host
	Host          string `json:"host,omitempty"`
	User          string `json:"user,omitempty"`
	SSHPrivateKey string `json:"sshPrivateKey,omitempty"`
	Password      string `json:"password,omitempty"`
}

// HasFieldsFor reports whether the required fields for the given provider
// kind are all present. Used to decide whether operator-injected
// configuration supplies a usable credential set.
func (c Credentials) HasFieldsFor(kind Kind) bool {
	switch kind {
	case KindAWS:
		return c.AccessKeyID != "" && c.SecretAccessKey != ""
	case KindAzure:
		return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != "" && c.SubscriptionID != ""
	case KindGCP:
		return c.ServiceAccountJSON != "" && c.ProjectID != ""
	case KindStatic:
		return c.Host != "" && c.User != "" && (c.SSHPrivateKey != "" || c.Password != "")
	}
	return false
}

// NodeSpec is the desired configuration handed to an adapter's Deploy.
type NodeSpec struct {
	ClusterName string
	NodeCount   int
	MachineType string
	Region      string
	Zone        string

	// SSHPublicKey is registered with the provider so provisioned nodes are
	// reachable for kubeconfig retrieval.
	SSHPublicKey string
	// SSHPrivateKey is the matching private key. Adapters that generate a
	// key pair themselves place the private key into Result.Details instead.
	SSHPrivateKey string

	// Extras carries provider-specific settings (subnet, image, resource
	// group, network) that the uniform spec does not model.
	Extras map[string]string
}

// Extra returns a provider-specific setting or a fallback.
func (s NodeSpec) Extra(key, fallback string) string {
	if v, ok := s.Extras[key]; ok && v != "" {
		return v
	}
	return fallback
}

// NodeState describes the lifecycle state of a created node as reported by
// the provider at creation time.
type NodeState string

const (
	NodeStatePending NodeState = "pending"
	NodeStateRunning NodeState = "running"
)

// Node describes one compute node created by a deploy.
type Node struct {
	InstanceID  string    `json:"instanceId"`
	Name        string    `json:"name"`
	PrivateAddr string    `json:"privateAddr,omitempty"`
	PublicAddr  string    `json:"publicAddr,omitempty"`
	State       NodeState `json:"state"`
}

// Detail keys that carry sensitive material and must be encrypted by the
// orchestrator before the result is persisted.
const (
	DetailSSHPrivateKey = "sshPrivateKey"
	DetailAccessKey     = "accessKey"
)

// SensitiveDetailKeys lists the Result.Details keys that must never reach
// storage unencrypted.
func SensitiveDetailKeys() []string {
	return []string{DetailSSHPrivateKey, DetailAccessKey}
}

// Result is the output of one successful deploy. It is persisted as part of
// the cluster's config blob and consumed later by destroy and kubeconfig
// retrieval. EncryptedDetails records which Details keys currently hold
// ciphertext instead of plaintext.
type Result struct {
	Success          bool              `json:"success"`
	DeploymentID     string            `json:"deploymentId"`
	Nodes            []Node            `json:"nodes"`
	Details          map[string]string `json:"details,omitempty"`
	EncryptedDetails []string          `json:"encryptedDetails,omitempty"`
}

// Clone returns a deep copy. Used when sensitive details must be decrypted
// transiently in memory without mutating the persisted representation.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Nodes = make([]Node, len(r.Nodes))
	copy(out.Nodes, r.Nodes)
	if r.Details != nil {
		out.Details = make(map[string]string, len(r.Details))
		for k, v := range r.Details {
			out.Details[k] = v
		}
	}
	if r.EncryptedDetails != nil {
		out.EncryptedDetails = make([]string, len(r.EncryptedDetails))
		copy(out.EncryptedDetails, r.EncryptedDetails)
	}
	return &out
}

// DetailEncrypted reports whether the given Details key holds ciphertext.
func (r *Result) DetailEncrypted(key string) bool {
	for _, k := range r.EncryptedDetails {
		if k == key {
			return true
		}
	}
	return false
}

// DestroyOutcome reports the result of a destroy call.
type DestroyOutcome struct {
	Success bool `json:"success"`
	// Count is the number of provider resources that were discovered by
	// deployment tag and deleted. Zero on an already-empty deployment.
	Count int `json:"count"`
}

// ValidationResult is the outcome of a live credential check. Expected
// authentication failures set Valid=false with a human-readable Message;
// they are not surfaced as errors.
type ValidationResult struct {
	Valid    bool   `json:"valid"`
	Identity string `json:"identity,omitempty"`
	Message  string `json:"message,omitempty"`
}
