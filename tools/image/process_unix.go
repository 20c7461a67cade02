//go:build unix

package image

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func processGroupEnable(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func processGroupKill(cmd *exec.Cmd) error {
	return unix.Kill(-cmd.Process.Pid, unix.SIGINT)
}
