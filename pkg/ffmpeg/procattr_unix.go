//go:build unix

package ffmpeg

import (
	"os/exec"
	"syscall"
)

// detach puts the encoder in its own process group so a terminal Ctrl-C
// reaches only the controlling process.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
