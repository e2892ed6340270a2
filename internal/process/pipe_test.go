package process

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipe(command string, mode Mode) *Pipe {
	p := NewPipe("test", command, mode, testLogger())
	p.SetTimeouts(100*time.Millisecond, 100*time.Millisecond)
	return p
}

func TestReadFullFromStdout(t *testing.T) {
	p := newTestPipe(`printf abcdefgh`, ModeRead)
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer p.Close()

	buf := make([]byte, 4)
	if err := p.ReadFull(buf); err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(buf) != "abcd" {
		t.Errorf("expected abcd, got %q", buf)
	}
	if err := p.ReadFull(buf); err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(buf) != "efgh" {
		t.Errorf("expected efgh, got %q", buf)
	}
	if err := p.ReadFull(buf); err == nil {
		t.Error("expected EOF after output is exhausted")
	}
}

func TestReadAfterExitKeepsBufferedData(t *testing.T) {
	p := newTestPipe(`printf 0123456789`, ModeRead)
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer p.Close()

	select {
	case <-p.Exited():
	case <-time.After(time.Second):
		t.Fatal("process did not exit")
	}

	buf := make([]byte, 10)
	if err := p.ReadFull(buf); err != nil {
		t.Fatalf("expected buffered data after exit, got %v", err)
	}
	if string(buf) != "0123456789" {
		t.Errorf("expected 0123456789, got %q", buf)
	}
}

func TestWriteThenCloseDeliversEOF(t *testing.T) {
	dir := t.TempDir()
	out := dir + "/out.bin"

	p := newTestPipe(`sh -c "cat > `+out+`"`, ModeWrite)
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	payload := bytes.Repeat([]byte{1, 2, 3}, 1000)
	if _, err := p.Write(payload); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	if code := p.Close(); code != 0 {
		t.Errorf("expected exit code 0 after stdin EOF, got %d", code)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("expected %d bytes written, got %d", len(payload), len(data))
	}
}

func TestGracefulShutdown(t *testing.T) {
	p := newTestPipe(`sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.05; done"`, ModeRead)
	p.SetTimeouts(500*time.Millisecond, 100*time.Millisecond)
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if code := p.Close(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	p := newTestPipe(`sh -c "trap '' INT; sleep 10"`, ModeRead)
	p.SetTimeouts(50*time.Millisecond, 200*time.Millisecond)
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if code := p.Close(); code != ExitKilled {
		t.Errorf("expected exit code %d, got %d", ExitKilled, code)
	}
}

func TestCloseUnblocksReader(t *testing.T) {
	p := newTestPipe("sleep 10", ModeRead)
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.ReadFull(make([]byte, 16))
	}()

	time.Sleep(20 * time.Millisecond)
	p.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("expected read error after close")
		}
	case <-time.After(time.Second):
		t.Fatal("reader still blocked after Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p := newTestPipe("sh -c 'exit 3'", ModeRead)
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	<-p.Exited()

	first := p.Close()
	second := p.Close()
	if first != 3 || second != 3 {
		t.Errorf("expected exit code 3 twice, got %d and %d", first, second)
	}
}

func TestCloseBeforeStart(t *testing.T) {
	p := newTestPipe("sleep 10", ModeRead)
	if code := p.Close(); code != 0 {
		t.Errorf("expected 0 for unstarted pipe, got %d", code)
	}
	if err := p.ReadFull(make([]byte, 1)); err != ErrNotStarted {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
	if _, err := p.Write([]byte{1}); err != ErrNotStarted {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{"unclosed quote", `echo "unclosed`},
		{"empty", ""},
		{"missing binary", "/nonexistent/command/that/does/not/exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipe(tt.command, ModeRead)
			if err := p.Start(); err == nil {
				p.Close()
				t.Fatal("expected start error")
			}
		})
	}
}

func TestStderrParsedIntoLogger(t *testing.T) {
	rec := &recordingLogger{}
	p := newTestPipe(`sh -c "echo '[error] broken' 1>&2; echo '[debug] chatty' 1>&2"`, ModeRead)
	p.SetLogParser(rec, func(line string) (slog.Level, string) {
		if strings.HasPrefix(line, "[error] ") {
			return slog.LevelError, strings.TrimPrefix(line, "[error] ")
		}
		return slog.LevelDebug, line
	})
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	<-p.Exited()
	p.Close()

	got := rec.all()
	if len(got) != 2 || got[0] != "error:broken" || got[1] != "debug:[debug] chatty" {
		t.Errorf("unexpected log lines: %v", got)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`ffmpeg -i in.mp4 -f rawvideo -`, []string{"ffmpeg", "-i", "in.mp4", "-f", "rawvideo", "-"}},
		{`sh -c "echo hi"`, []string{"sh", "-c", "echo hi"}},
		{`echo hello\ world`, []string{"echo", "hello world"}},
		{`echo 'it"s'`, []string{"echo", `it"s`}},
		{"ffmpeg  -i\tin.avi ''", []string{"ffmpeg", "-i", "in.avi", ""}},
		{`echo "a \"b\""`, []string{"echo", `a "b"`}},
	}

	for _, tt := range tests {
		got, err := parseCommand(tt.in)
		if err != nil {
			t.Fatalf("parseCommand(%q): unexpected error %v", tt.in, err)
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLogger) add(level, msg string) {
	r.mu.Lock()
	r.lines = append(r.lines, level+":"+msg)
	r.mu.Unlock()
}

func (r *recordingLogger) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.add("debug", msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.add("info", msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.add("warn", msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.add("error", msg) }
