package internal

import (
	"os"
	"os/exec"
)

// UnbreakDocker attaches the current container (if any) to the default bridge
// network so tests running inside a dev container can reach containers started
// by testcontainers. Failures are ignored.
func UnbreakDocker() {
	if hostname, err := os.Hostname(); err == nil {
		exec.Command("docker", "network", "connect", "bridge", hostname).Run()
	}
}
