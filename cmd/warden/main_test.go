// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/lib/config"
	"github.com/bureau-foundation/warden/lib/keepalive"
	"github.com/bureau-foundation/warden/lib/reactor"
	"github.com/bureau-foundation/warden/lib/testutil"
	"github.com/bureau-foundation/warden/platform"
	"github.com/bureau-foundation/warden/platform/platformtest"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-c", "warden.yaml", "--log-level", "warn", "--env-file", "prod.env"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.configPath != "warden.yaml" || opts.logLevel != "warn" || opts.envFile != "prod.env" {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags(nil): %v", err)
	}
	if opts.envFile != ".env" || opts.showVersion {
		t.Errorf("defaults = %+v", opts)
	}

	if _, err := parseFlags([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("--help returned %v", err)
	}
	if _, err := parseFlags([]string{"stray"}); err == nil {
		t.Error("positional argument accepted")
	}
}

func TestLoadConfigSources(t *testing.T) {
	t.Setenv("WARDEN_CONFIG", "")

	cfg, err := loadConfig(options{})
	if err != nil {
		t.Fatalf("loadConfig with defaults: %v", err)
	}
	if cfg.Commands.Prefix != "!" {
		t.Errorf("expected default prefix, got %q", cfg.Commands.Prefix)
	}

	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte("commands:\n  prefix: \"?\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(options{configPath: path, logLevel: "error"})
	if err != nil {
		t.Fatalf("loadConfig from file: %v", err)
	}
	if cfg.Commands.Prefix != "?" || cfg.Log.Level != "error" {
		t.Errorf("prefix %q level %q", cfg.Commands.Prefix, cfg.Log.Level)
	}

	t.Setenv("WARDEN_CONFIG", path)
	cfg, err = loadConfig(options{})
	if err != nil {
		t.Fatalf("loadConfig from WARDEN_CONFIG: %v", err)
	}
	if cfg.Commands.Prefix != "?" {
		t.Errorf("WARDEN_CONFIG ignored, prefix %q", cfg.Commands.Prefix)
	}

	if _, err := loadConfig(options{logLevel: "chatty"}); err == nil {
		t.Error("invalid --log-level accepted")
	}
}

func TestNewLoggerWritesJSONWhenNotATerminal(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buffer.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if record["msg"] != "shown" || record["key"] != "value" {
		t.Errorf("record = %v", record)
	}
}

func TestBuildRoutesEventsThroughService(t *testing.T) {
	fake := platformtest.New("bot")
	fake.AddMember(platform.Member{GuildID: "guild", User: platform.User{ID: "newcomer", Username: "newcomer"}})

	cfg := config.Default()
	cfg.Guild.AutoRoleID = "role-member"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	react := reactor.New(context.Background(), logger)
	wired := build(fake, cfg, clock.Real(), react, logger)

	if !wired.service.Dispatch(platform.MemberJoined{Member: platform.Member{
		GuildID: "guild",
		User:    platform.User{ID: "newcomer", Username: "newcomer"},
	}}) {
		t.Fatal("Dispatch rejected the event")
	}
	react.Close()

	if !slices.Contains(fake.MemberRoles("guild", "newcomer"), "role-member") {
		t.Errorf("auto-role not assigned, roles = %v", fake.MemberRoles("guild", "newcomer"))
	}
	if wired.service.Dispatch(platform.MemberLeft{GuildID: "guild"}) {
		t.Error("Dispatch accepted an event after the reactor closed")
	}
}

type fakeGateway struct {
	openErr error
	opened  chan struct{}
	closed  atomic.Bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{opened: make(chan struct{})}
}

func (g *fakeGateway) Open() error {
	close(g.opened)
	return g.openErr
}

func (g *fakeGateway) Close() error {
	g.closed.Store(true)
	return nil
}

// startServe runs serve in a goroutine and returns its result channel
// and the wiring it runs.
func startServe(t *testing.T, ctx context.Context, conn gateway, server *keepalive.Server) (<-chan error, wiring) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fake := platformtest.New("bot")
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	t.Cleanup(cancelTasks)
	wired := build(fake, config.Default(), clock.Real(), reactor.New(taskCtx, logger), logger)

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, conn, wired, server, cancelTasks, "test", logger)
	}()
	return done, wired
}

func TestServeWithoutKeepAliveRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := newFakeGateway()
	done, wired := startServe(t, ctx, conn, nil)

	testutil.RequireClosed(t, conn.opened, 5*time.Second, "gateway opened")
	select {
	case err := <-done:
		t.Fatalf("serve returned %v before cancellation", err)
	case <-time.After(100 * time.Millisecond): //nolint:realclock shutdown must not start on its own
	}
	if conn.closed.Load() {
		t.Fatal("gateway closed before cancellation")
	}
	if !wired.service.Dispatch(platform.MemberLeft{GuildID: "guild"}) {
		t.Error("events rejected while running")
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "serve returned"); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !conn.closed.Load() {
		t.Error("gateway not closed on shutdown")
	}
	if wired.service.Dispatch(platform.MemberLeft{GuildID: "guild"}) {
		t.Error("events accepted after shutdown")
	}
}

func TestServeWithKeepAlive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server := keepalive.NewServer(keepalive.Config{
		Address: "127.0.0.1:0",
		Handler: keepalive.NewHandler(clock.Real()),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	conn := newFakeGateway()
	done, _ := startServe(t, ctx, conn, server)

	testutil.RequireClosed(t, conn.opened, 5*time.Second, "gateway opened")
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "keep-alive listening")
	response, err := http.Get("http://" + server.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("status = %d", response.StatusCode)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "serve returned"); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !conn.closed.Load() {
		t.Error("gateway not closed on shutdown")
	}
}

func TestServeShutsDownWhenKeepAliveFails(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()
	server := keepalive.NewServer(keepalive.Config{
		Address: occupied.Addr().String(),
		Handler: keepalive.NewHandler(clock.Real()),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	conn := newFakeGateway()
	done, _ := startServe(t, context.Background(), conn, server)

	if err := testutil.RequireReceive(t, done, 5*time.Second, "serve returned"); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !conn.closed.Load() {
		t.Error("gateway not closed after keep-alive failure")
	}
}

func TestServeReturnsGatewayOpenError(t *testing.T) {
	conn := newFakeGateway()
	conn.openErr = errors.New("gateway refused")
	done, _ := startServe(t, context.Background(), conn, nil)

	err := testutil.RequireReceive(t, done, 5*time.Second, "serve returned")
	if !errors.Is(err, conn.openErr) {
		t.Errorf("serve = %v, want the open error", err)
	}
	if conn.closed.Load() {
		t.Error("gateway closed after a failed open")
	}
}
