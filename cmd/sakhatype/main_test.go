package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sakhatype/internal/clock"
	"github.com/and161185/sakhatype/internal/config"
	"github.com/and161185/sakhatype/internal/limiter"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	t.Parallel()
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["migrate"])
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateCmd_RejectsUnknownAction(t *testing.T) {
	t.Parallel()
	cmd := newMigrateCmd()
	require.Error(t, cmd.Args(cmd, []string{"sideways"}))
	require.Error(t, cmd.Args(cmd, []string{"up", "down"}))
	require.NoError(t, cmd.Args(cmd, []string{"status"}))
	require.NoError(t, cmd.Args(cmd, nil))
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	l, err := newLogger(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zap.InfoLevel))
	require.True(t, l.Core().Enabled(zap.WarnLevel))

	l, err = newLogger(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Store = config.StoreMemory
	cfg.Auth.JWTKey = "k"
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.GRPC.Addr = "127.0.0.1:0"
	return &cfg
}

func TestOpenStores_Memory(t *testing.T) {
	t.Parallel()
	st, err := openStores(context.Background(), memoryConfig(), clock.Real{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer st.close()

	require.IsType(t, limiter.Nop{}, st.lim)
	require.NoError(t, st.ping.Ping(context.Background()))
	words, err := st.words.Random(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, words, 5)
}

func TestServe_MemoryStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- serve(ctx, memoryConfig(), zap.NewNop()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}
}
