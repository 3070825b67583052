package naming

import "testing"

func TestNode(t *testing.T) {
	got := Node("demo", 3)
	want := "demo-node-3"
	if got != want {
		t.Errorf("Node() = %q, want %q", got, want)
	}
}

func TestCredentialDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		identity string
		want     string
	}{
		{"with identity", "aws", "arn:aws:iam::123456789012:user/ops", "aws (arn:aws:iam::123456789012:user/ops)"},
		{"without identity", "static", "", "static"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CredentialDisplayName(tt.provider, tt.identity); got != tt.want {
				t.Errorf("CredentialDisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
