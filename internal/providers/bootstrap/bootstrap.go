// Package bootstrap builds the startup script that turns a freshly created
// cloud node into a Kubernetes-capable one. The script is passed to the
// provider's user-data/startup-script mechanism at creation time; static
// hosts are assumed to be pre-provisioned and never receive it.
package bootstrap

import (
	"encoding/base64"
	"fmt"
)

// Script returns the shell script executed on first boot. It installs k3s
// with a world-readable kubeconfig so kubeconfig retrieval can read
// /etc/rancher/k3s/k3s.yaml over SSH.
func Script(clusterName string) string {
	return fmt.Sprintf(`#!/bin/bash
set -e

# Install k3s
curl -sfL https://get.k3s.io | sh -s - --write-kubeconfig-mode 644

# Record which cluster this node belongs to
mkdir -p /etc/meridian
echo %q > /etc/meridian/cluster
`, clusterName)
}

// ScriptBase64 returns the script base64-encoded, as expected by the EC2 and
// ARM user-data fields.
func ScriptBase64(clusterName string) string {
	return base64.StdEncoding.EncodeToString([]byte(Script(clusterName)))
}
