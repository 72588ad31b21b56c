package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"observer_core/internal/collector/collectortest"
	"observer_core/internal/config"
	"observer_core/internal/identity"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

func TestStartPrimesBeforeServing(t *testing.T) {
	provider := collectortest.New()
	s := New(testConfig(), provider, identity.New("observer-core", "0.1.0", time.Now()), zaptest.NewLogger(t))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop()

	if !s.sampler.Ready() {
		t.Fatal("sampler must be primed before the listener accepts requests")
	}
	if calls := provider.Calls(); len(calls) != 1 || calls[0] != 0 {
		t.Errorf("priming calls = %v", calls)
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"healthy"`) {
		t.Errorf("unexpected response %d: %s", resp.StatusCode, body)
	}
}

func TestStartFailsWhenPrimingFails(t *testing.T) {
	provider := collectortest.New()
	provider.PercentErr = errors.New("no counters")
	s := New(testConfig(), provider, identity.New("observer-core", "0.1.0", time.Now()), zaptest.NewLogger(t))

	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected Start() to fail")
	}
	if s.Addr() != "" {
		t.Error("server must not listen after failed priming")
	}
}

func TestStopEndsWait(t *testing.T) {
	s := New(testConfig(), collectortest.New(), identity.New("observer-core", "0.1.0", time.Now()), zaptest.NewLogger(t))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after Stop()")
	}
}
