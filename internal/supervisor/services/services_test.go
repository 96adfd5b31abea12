// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*MatchSweeperService)(nil)
)

// mockHTTPServer blocks in ListenAndServe until Shutdown, unless
// listenErr is set.
type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stop
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	close(m.stop)
	return m.shutdownErr
}

func TestNewHTTPServerServiceDefaultTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if got := NewHTTPServerService(newMockHTTPServer(), d).shutdownTimeout; got != 10*time.Second {
			t.Errorf("timeout(%v) = %v, want 10s", d, got)
		}
	}
	if got := NewHTTPServerService(newMockHTTPServer(), time.Second).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newMockHTTPServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if got := srv.shutdowns.Load(); got != 1 {
		t.Errorf("Shutdown called %d times, want 1", got)
	}
}

func TestHTTPServerServiceListenFailure(t *testing.T) {
	srv := newMockHTTPServer()
	srv.listenErr = errors.New("address already in use")

	err := NewHTTPServerService(srv, time.Second).Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Fatalf("Serve = %v, want wrapped listen error", err)
	}
}

func TestHTTPServerServiceShutdownFailure(t *testing.T) {
	srv := newMockHTTPServer()
	srv.shutdownErr = errors.New("drain timed out")
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	<-srv.started
	cancel()

	if err := <-done; !errors.Is(err, srv.shutdownErr) {
		t.Errorf("Serve = %v, want wrapped shutdown error", err)
	}
}

type fakeRunner struct{ calls atomic.Int32 }

func (f *fakeRunner) RunWithContext(ctx context.Context) error {
	f.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestMatchSweeperServiceDelegates(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewMatchSweeperService(runner)
	if svc.String() != "match-sweeper" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v", err)
	}
	if runner.calls.Load() != 1 {
		t.Errorf("RunWithContext called %d times", runner.calls.Load())
	}
}
