package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"
)

// buildScrollbet builds the scrollbet binary for testing.
// Returns the path to the binary and a cleanup function.
func buildScrollbet(t *testing.T) (string, func()) {
	t.Helper()
	dir := t.TempDir()
	binPath := filepath.Join(dir, "scrollbet")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// Assume we are in test/e2e, go up 2 levels
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/scrollbet")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}

	return binPath, func() { os.RemoveAll(dir) }
}

func TestE2E_ScrollAndBet(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and runs the binary")
	}
	binPath, cleanup := buildScrollbet(t)
	defer cleanup()

	backend := newFixtureBackend()
	defer backend.Close()

	// Clean home directory so nothing is restored from a real session
	homeDir := t.TempDir()

	cmd := exec.Command(binPath, "-api", backend.URL, "-session", "e2e")
	cmd.Env = append(os.Environ(), "HOME="+homeDir)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		t.Fatalf("failed to start pty: %v", err)
	}
	defer func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
	}()

	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: 120, Rows: 40}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	var outputBuf bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdin(ptmx),
		expect.WithStdout(&outputBuf),
		expect.WithDefaultTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	// 1. First item is active
	t.Log("Waiting for first item...")
	if _, err := console.ExpectString("Fixture Clip One"); err != nil {
		if logs, err := filepath.Glob(filepath.Join(homeDir, ".scrollbet", "logs", "*.log")); err == nil && len(logs) > 0 {
			if b, err := os.ReadFile(logs[0]); err == nil {
				t.Logf("scrollbet log:\n%s", b)
			}
		}
		t.Fatalf("startup failed: first item not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}
	if _, err := console.ExpectString("1/2"); err != nil {
		t.Fatalf("position not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// 2. Scroll to the next page
	time.Sleep(300 * time.Millisecond)
	if _, err := console.Send("j"); err != nil {
		t.Fatalf("failed to send j: %v", err)
	}
	if _, err := console.ExpectString("Fixture Clip Two"); err != nil {
		t.Fatalf("second item not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// 3. Bet YES on the active market
	if _, err := console.Send("y"); err != nil {
		t.Fatalf("failed to send y: %v", err)
	}
	if _, err := console.ExpectString("Bet YES on KXSB-26"); err != nil {
		t.Fatalf("bet notice not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// 4. Quit
	if _, err := console.Send("q"); err != nil {
		t.Fatalf("failed to send q: %v", err)
	}
	done := make(chan error)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Error("process did not exit after 'q'")
	}

	// The feed was saved for the next run
	if _, err := os.Stat(filepath.Join(homeDir, ".scrollbet", "scrollbet.db")); err != nil {
		t.Errorf("expected snapshot database: %v", err)
	}
}
