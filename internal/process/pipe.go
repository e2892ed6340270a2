package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/framenode/internal/logging"
)

// ExitKilled is reported when the process had to be force-killed.
const ExitKilled = 137

// LogParser maps a stderr line to a log level and the message to record.
type LogParser func(line string) (slog.Level, string)

// Mode selects which standard streams are exposed as binary pipes.
type Mode int

// Pipe modes. They can be combined.
const (
	ModeRead  Mode = 1 << iota // read the child's stdout
	ModeWrite                  // write the child's stdin
)

var (
	ErrNotStarted = errors.New("process not started")
	ErrExited     = errors.New("process exited")
)

// Pipe is a subprocess exchanging raw bytes over stdin/stdout.
type Pipe struct {
	id      string
	command string
	mode    Mode
	logger  logging.Logger

	outputLogger logging.Logger
	parser       LogParser

	gracefulTimeout time.Duration
	killTimeout     time.Duration

	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *os.File
	stderrDone chan struct{}
	exited     chan struct{}
	waitErr    error

	closeOnce sync.Once
	exitCode  int
}

// NewPipe creates a pipe for command. Nothing runs until Start.
func NewPipe(id, command string, mode Mode, logger logging.Logger) *Pipe {
	return &Pipe{
		id:              id,
		command:         command,
		mode:            mode,
		logger:          logger,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		exited:          make(chan struct{}),
	}
}

// SetLogParser routes stderr lines to logger at the level parser extracts.
func (p *Pipe) SetLogParser(logger logging.Logger, parser LogParser) {
	p.outputLogger = logger
	p.parser = parser
}

// SetTimeouts overrides the graceful and post-kill wait durations.
func (p *Pipe) SetTimeouts(graceful, kill time.Duration) {
	p.gracefulTimeout = graceful
	p.killTimeout = kill
}

// Command returns the command line.
func (p *Pipe) Command() string {
	return p.command
}

// Start launches the subprocess.
func (p *Pipe) Start() error {
	args, err := parseCommand(p.command)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if p.mode&ModeWrite != 0 {
		if p.stdin, err = cmd.StdinPipe(); err != nil {
			return fmt.Errorf("stdin pipe: %w", err)
		}
	}
	// stdout uses a plain os.Pipe so that Wait does not close the read end
	// while frames are still buffered in it.
	var stdoutW *os.File
	if p.mode&ModeRead != 0 {
		r, w, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("stdout pipe: %w", err)
		}
		cmd.Stdout = w
		p.stdout = r
		stdoutW = w
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		p.closeStdout(stdoutW)
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		p.closeStdout(stdoutW)
		return fmt.Errorf("start %s: %w", args[0], err)
	}
	if stdoutW != nil {
		_ = stdoutW.Close()
	}
	p.cmd = cmd
	p.logger.Info("Process started", "id", p.id, "pid", cmd.Process.Pid)

	p.stderrDone = make(chan struct{})
	go func() {
		defer close(p.stderrDone)
		p.streamLines(stderr)
	}()

	go func() {
		// Wait closes the stderr pipe, so it must be drained first.
		<-p.stderrDone
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()

	return nil
}

// ReadFull reads exactly len(buf) bytes from the child's stdout.
func (p *Pipe) ReadFull(buf []byte) error {
	if p.stdout == nil {
		return ErrNotStarted
	}
	_, err := io.ReadFull(p.stdout, buf)
	return err
}

// Write sends bytes to the child's stdin.
func (p *Pipe) Write(b []byte) (int, error) {
	if p.stdin == nil {
		return 0, ErrNotStarted
	}
	select {
	case <-p.exited:
		return 0, ErrExited
	default:
	}
	return p.stdin.Write(b)
}

// Exited is closed once the process has terminated.
func (p *Pipe) Exited() <-chan struct{} {
	return p.exited
}

// Close stops the process and returns its exit code. Writers get EOF on stdin
// first; anything still running after the graceful timeout receives SIGINT and
// then SIGKILL. Safe to call multiple times.
func (p *Pipe) Close() int {
	p.closeOnce.Do(func() {
		p.exitCode = p.shutdown()
	})
	return p.exitCode
}

func (p *Pipe) shutdown() int {
	if p.cmd == nil {
		return 0
	}
	if p.stdout != nil {
		defer p.stdout.Close()
	}

	if p.stdin != nil {
		_ = p.stdin.Close()
		if code, ok := p.waitFor(p.gracefulTimeout); ok {
			return code
		}
	}

	p.logger.Debug("Sending SIGINT to process", "id", p.id, "pid", p.cmd.Process.Pid)
	if err := p.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to send SIGINT", "id", p.id, "error", err)
	}
	if code, ok := p.waitFor(p.gracefulTimeout); ok {
		return code
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "id", p.id, "timeout", p.gracefulTimeout)
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("Failed to kill process", "id", p.id, "error", err)
	}
	if _, ok := p.waitFor(p.killTimeout); !ok {
		p.logger.Error("Process did not exit after kill signal", "id", p.id)
	}
	return ExitKilled
}

func (p *Pipe) waitFor(timeout time.Duration) (int, bool) {
	select {
	case <-p.exited:
		return exitCodeFromError(p.waitErr), true
	case <-time.After(timeout):
		return 0, false
	}
}

func (p *Pipe) closeStdout(w *os.File) {
	if w != nil {
		_ = w.Close()
	}
	if p.stdout != nil {
		_ = p.stdout.Close()
		p.stdout = nil
	}
}

// exitCodeFromError returns 0 for nil, the exit code for ExitError and 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func (p *Pipe) streamLines(r io.Reader) {
	logger := p.outputLogger
	if logger == nil {
		logger = p.logger
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		level, msg := slog.LevelInfo, scanner.Text()
		if p.parser != nil {
			level, msg = p.parser(msg)
		}
		switch {
		case level >= slog.LevelError:
			logger.Error(msg, "id", p.id)
		case level >= slog.LevelWarn:
			logger.Warn(msg, "id", p.id)
		case level < slog.LevelInfo:
			logger.Debug(msg, "id", p.id)
		default:
			logger.Info(msg, "id", p.id)
		}
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading process output", "id", p.id, "error", err)
	}
}
