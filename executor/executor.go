// Package executor starts worker processes and forgets about them.
//
// A launched process gets its own process group, writes stdout and stderr to log files and is
// reaped in the background. Its exit status is never reported back.
package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	log "github.com/freundallein/taskpoller/backend/chassis/logging"
)

// ErrLaunchFailure - the worker process could not be started.
var ErrLaunchFailure = errors.New("launch failure")

// Launcher ...
type Launcher interface {
	Launch(commandLine, stdoutPath, stderrPath string) error
}

// Config ...
type Config struct {
	// Dir is the working directory of launched processes, where the worker scripts live.
	Dir string
}

// Executor - fire-and-forget Launcher.
type Executor struct {
	dir string
}

// New ...
func New(cfg Config) *Executor {
	return &Executor{dir: cfg.Dir}
}

// Launch splits commandLine on whitespace, starts it and returns without waiting.
func (e *Executor) Launch(commandLine, stdoutPath, stderrPath string) error {
	argv := strings.Fields(commandLine)
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty command line", ErrLaunchFailure)
	}
	stdout, err := openLog(stdoutPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}
	stderr := stdout
	if stderrPath != stdoutPath {
		stderr, err = openLog(stderrPath)
		if err != nil {
			stdout.Close()
			return fmt.Errorf("%w: %v", ErrLaunchFailure, err)
		}
	}
	closeLogs := func() {
		stdout.Close()
		if stderr != stdout {
			stderr.Close()
		}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = e.dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		closeLogs()
		return fmt.Errorf("%w: start %q: %v", ErrLaunchFailure, argv[0], err)
	}
	pid := cmd.Process.Pid
	log.WithFields(log.Fields{
		"event":   "process_launched",
		"pid":     pid,
		"command": commandLine,
	}).Debug("worker process started")

	go func() {
		// Reap only; the exit status is not reported.
		_ = cmd.Wait()
		closeLogs()
		log.WithFields(log.Fields{
			"event": "process_exited",
			"pid":   pid,
		}).Debug("worker process exited")
	}()
	return nil
}

func openLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}
