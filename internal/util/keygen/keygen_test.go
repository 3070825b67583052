package keygen

import (
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestGenerateRSAKeyPair(t *testing.T) {
	kp, err := GenerateRSAKeyPair(DefaultBits)
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair: %v", err)
	}

	if _, err := ssh.ParsePrivateKey(kp.PrivateKey); err != nil {
		t.Errorf("private key does not parse: %v", err)
	}
	if !strings.HasPrefix(string(kp.PublicKey), "ssh-rsa ") {
		t.Errorf("public key not in authorized_keys format: %q", kp.PublicKey[:20])
	}
	if strings.HasSuffix(kp.PublicKeyString(), "\n") {
		t.Error("PublicKeyString must trim the trailing newline")
	}
}

func TestGenerateRSAKeyPair_TooSmall(t *testing.T) {
	if _, err := GenerateRSAKeyPair(16); err == nil {
		t.Fatal("expected error for undersized key")
	}
}
