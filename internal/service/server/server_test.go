package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/publisher"
	"github.com/oshokin/home-security/internal/repository/state"
	"github.com/oshokin/home-security/internal/service/common"
)

var errTestClose = errors.New("close failed")

// TestClosers runs closers in reverse order and joins errors.
func TestClosers(t *testing.T) {
	t.Parallel()

	var (
		order   []int
		cleanup closers
	)

	cleanup.add(func() error {
		order = append(order, 1)

		return nil
	})
	cleanup.add(func() error {
		order = append(order, 2)

		return errTestClose
	})

	require.ErrorIs(t, cleanup.Close(), errTestClose)
	require.Equal(t, []int{2, 1}, order)
}

// TestNewStore opens every backend selected by the settings.
func TestNewStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	redisServer := miniredis.RunT(t)

	tests := []struct {
		name     string
		settings config.StoreConfig
		want     any
	}{
		{
			name:     "file",
			settings: config.StoreConfig{Driver: config.StoreFile, Path: filepath.Join(dir, "config.json")},
			want:     new(state.FileRepository),
		},
		{
			name:     "sqlite",
			settings: config.StoreConfig{Driver: config.StoreSQLite, Path: filepath.Join(dir, "security.db")},
			want:     new(state.SQLiteRepository),
		},
		{
			name:     "redis",
			settings: config.StoreConfig{Driver: config.StoreRedis, RedisAddress: redisServer.Addr(), RedisKey: "k"},
			want:     new(state.RedisRepository),
		},
	}

	for _, tt := range tests {
		var cleanup closers

		repo, err := newStore(ctx, tt.settings, &cleanup)
		require.NoError(t, err, tt.name)
		require.IsType(t, tt.want, repo, tt.name)

		require.NoError(t, repo.Save(ctx, security.DefaultConfig()), tt.name)
		require.NoError(t, cleanup.Close(), tt.name)
	}
}

// TestNewStore_RedisUnavailable fails fast at startup.
func TestNewStore_RedisUnavailable(t *testing.T) {
	t.Parallel()

	redisServer := miniredis.RunT(t)
	address := redisServer.Addr()
	redisServer.Close()

	var cleanup closers

	_, err := newStore(context.Background(), config.StoreConfig{Driver: config.StoreRedis, RedisAddress: address}, &cleanup)
	require.Error(t, err)
	require.Empty(t, cleanup)
}

// TestNewPublisher selects log-only or redis fan-out.
func TestNewPublisher(t *testing.T) {
	t.Parallel()

	var cleanup closers

	pub, err := newPublisher(context.Background(), config.PublisherConfig{Driver: config.PublisherLog}, &cleanup)
	require.NoError(t, err)
	require.IsType(t, new(publisher.Log), pub)

	redisServer := miniredis.RunT(t)

	pub, err = newPublisher(context.Background(), config.PublisherConfig{
		Driver:       config.PublisherRedis,
		RedisAddress: redisServer.Addr(),
		Channel:      "security-config",
	}, &cleanup)
	require.NoError(t, err)
	require.IsType(t, publisher.Multi{}, pub)
	require.Len(t, cleanup, 1)
	require.NoError(t, cleanup.Close())
}

// TestRun serves both transports against a shell worker and stops on cancel.
func TestRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := filepath.Join(dir, "detect.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncp \"$1\" \"$5/$6.jpeg\"\necho \"Person detected.\"\n"), 0o700))

	configPath := filepath.Join(dir, "security-settings.yaml")
	require.NoError(t, config.Save(configPath, &config.Config{
		GRPCAddress: "127.0.0.1:0",
		HTTPAddress: "127.0.0.1:0",
		Log:         config.LogConfig{Level: "error"},
		Store:       config.StoreConfig{Driver: config.StoreFile, Path: filepath.Join(dir, "security_config.json")},
		Detector: config.DetectorConfig{
			Interpreter: "/bin/sh",
			Script:      script,
			CaptureDir:  filepath.Join(dir, "captures"),
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type addresses struct{ grpc, http net.Addr }

	ready := make(chan addresses, 1)
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, &Options{
			ConfigPath: configPath,
			Ready: func(grpcAddress, httpAddress net.Addr) {
				ready <- addresses{grpc: grpcAddress, http: httpAddress}
			},
		})
	}()

	var addrs addresses

	select {
	case addrs = <-ready:
	case err := <-done:
		t.Fatalf("server stopped early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}

	client, err := common.Dial(ctx, addrs.grpc.String(), common.WithCallTimeout(10*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	cfg, err := client.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, security.DefaultConfig(), cfg)

	_, err = client.Arm(ctx)
	require.NoError(t, err)

	baseURL := "http://" + addrs.http.String()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/security-check",
		strings.NewReader(base64.StdEncoding.EncodeToString([]byte("frame"))))
	require.NoError(t, err)

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	require.Equal(t, http.StatusAccepted, response.StatusCode)

	cfg, err = client.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, security.Config{Status: security.StatusBreached, State: security.StateArmed}, cfg)

	image, err := client.AnnotatedImage(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("frame"), image)

	request, err = http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/-/healthy", nil)
	require.NoError(t, err)

	response, err = http.DefaultClient.Do(request)
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	require.Equal(t, http.StatusOK, response.StatusCode)

	cancel()

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}

// TestRun_MissingSettings reports unreadable settings.
func TestRun_MissingSettings(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err)
}
