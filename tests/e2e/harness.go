package e2e

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"portfolio/internal/api"
	"portfolio/internal/engine"
	"portfolio/internal/logger"
	"portfolio/internal/storage"
)

type systemUnderTest struct {
	BaseURL  string
	shutdown func()
	restart  func(t *testing.T)
}

func (s *systemUnderTest) Close() {
	if s.shutdown != nil {
		s.shutdown()
	}
}

// startSystemUnderTest picks the server to drive:
//   - PORTFOLIO_SERVER_CMD: a shell command launched per test with a fresh data dir
//   - PORTFOLIO_SERVER_URL: an already running server (no restarts, no fresh state)
//   - otherwise an in-process server over a file store in a temp dir
func startSystemUnderTest(t *testing.T) *systemUnderTest {
	t.Helper()

	if cmd := os.Getenv("PORTFOLIO_SERVER_CMD"); cmd != "" {
		sut, err := startExternalServer(t, cmd)
		if err != nil {
			t.Fatalf("start external server: %v", err)
		}
		return sut
	}

	if url := os.Getenv("PORTFOLIO_SERVER_URL"); url != "" {
		t.Logf("PORTFOLIO_SERVER_URL set; using existing server at %s", url)
		return &systemUnderTest{
			BaseURL: url,
			shutdown: func() {
				// External server; nothing to stop.
			},
			restart: nil, // restart not supported without process control
		}
	}

	return startInProcessServer(t)
}

// startInProcessServer serves the real handler stack. Restart tears the
// counter manager down and builds a new one over the same file, which is
// what a process restart does to the store.
func startInProcessServer(t *testing.T) *systemUnderTest {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data", "visitor-count.json")

	var (
		mgr  *engine.CounterManager
		stop context.CancelFunc
	)
	handler := &swappableHandler{}
	launch := func() {
		m, cancel, err := engine.NewCounterManager(context.Background(), storage.NewFileStore(path), engine.CounterCfg{}, logger.Nop())
		if err != nil {
			t.Fatalf("start counter manager: %v", err)
		}
		mgr, stop = m, cancel
		handler.set(api.NewServer(mgr, logger.Nop()))
	}
	halt := func() {
		stop()
		<-mgr.Done()
	}

	launch()
	srv := httptest.NewServer(handler)

	return &systemUnderTest{
		BaseURL: srv.URL,
		shutdown: func() {
			srv.Close()
			halt()
		},
		restart: func(t *testing.T) {
			t.Helper()
			halt()
			launch()
		},
	}
}

func startExternalServer(t *testing.T, cmdStr string) (*systemUnderTest, error) {
	t.Helper()

	dataDir, err := os.MkdirTemp("", "portfolio-e2e-data-*")
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	addr, err := freeAddr()
	if err != nil {
		return nil, fmt.Errorf("pick free addr: %w", err)
	}

	launcher := func() (*exec.Cmd, string, error) {
		cmd := exec.Command("/bin/sh", "-c", cmdStr)
		cmd.Env = append(os.Environ(),
			fmt.Sprintf("PORTFOLIO_SERVER_ADDR=%s", addr),
			fmt.Sprintf("PORTFOLIO_STORAGE_PATH=%s", filepath.Join(dataDir, "visitor-count.json")),
		)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, "", fmt.Errorf("cmd start: %w", err)
		}
		baseURL := "http://" + addr
		if err := waitForReady(baseURL, 10*time.Second); err != nil {
			_ = cmd.Process.Kill()
			return nil, "", fmt.Errorf("wait for ready: %w", err)
		}
		return cmd, baseURL, nil
	}

	cmd, baseURL, err := launcher()
	if err != nil {
		_ = os.RemoveAll(dataDir)
		return nil, err
	}

	restart := func(t *testing.T) {
		t.Helper()
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}

		newCmd, _, err := launcher()
		if err != nil {
			t.Fatalf("restart server: %v", err)
		}
		cmd = newCmd
	}

	shutdown := func() {
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
		_ = os.RemoveAll(dataDir)
	}

	return &systemUnderTest{
		BaseURL:  baseURL,
		shutdown: shutdown,
		restart:  restart,
	}, nil
}

func waitForReady(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not ready after %s", baseURL, timeout)
}

func freeAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	return l.Addr().String(), nil
}
