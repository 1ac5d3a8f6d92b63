package config

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReloader(t *testing.T, content string) (*Reloader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skillbridge.yaml")
	touch(t, path, content, 0)

	loader := NewLoader().WithConfigPath(path)
	initial, err := loader.Load()
	require.NoError(t, err)
	return NewReloader(loader, initial, zap.NewNop(),
		WithPollInterval(10*time.Millisecond), WithDebounceDelay(20*time.Millisecond)), path
}

func TestReloader_ReloadAppliesValidConfig(t *testing.T) {
	r, path := newTestReloader(t, "log:\n  level: info\n")
	assert.Equal(t, 1, r.Version())

	var gotOld, gotNew string
	r.OnReload(func(oldCfg, newCfg *Config) {
		gotOld, gotNew = oldCfg.Log.Level, newCfg.Log.Level
	})

	touch(t, path, "log:\n  level: debug\n", time.Second)
	require.NoError(t, r.Reload())

	assert.Equal(t, "debug", r.Current().Log.Level)
	assert.Equal(t, 2, r.Version())
	assert.Equal(t, "info", gotOld)
	assert.Equal(t, "debug", gotNew)
}

func TestReloader_UnchangedFileIsNoop(t *testing.T) {
	r, _ := newTestReloader(t, "log:\n  level: info\n")
	var calls int32
	r.OnReload(func(*Config, *Config) { atomic.AddInt32(&calls, 1) })

	require.NoError(t, r.Reload())
	assert.Equal(t, 1, r.Version())
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestReloader_InvalidConfigKeepsCurrent(t *testing.T) {
	r, path := newTestReloader(t, "log:\n  level: info\n")

	touch(t, path, "state:\n  backend: etcd\n", time.Second)
	err := r.Reload()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, "memory", r.Current().State.Backend)

	touch(t, path, "state: [", 2*time.Second)
	assert.Error(t, r.Reload())
	assert.Equal(t, 1, r.Version())
}

func TestReloader_CallbackPanicIsContained(t *testing.T) {
	r, path := newTestReloader(t, "log:\n  level: info\n")
	var second int32
	r.OnReload(func(*Config, *Config) { panic("boom") })
	r.OnReload(func(*Config, *Config) { atomic.AddInt32(&second, 1) })

	touch(t, path, "log:\n  level: warn\n", time.Second)
	require.NoError(t, r.Reload())
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestReloader_WatchesFile(t *testing.T) {
	r, path := newTestReloader(t, "log:\n  level: info\n")
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	touch(t, path, "log:\n  level: error\n", time.Second)
	require.Eventually(t, func() bool {
		return r.Current().Log.Level == "error"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestChangedSections(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	assert.Empty(t, ChangedSections(a, b))

	b.Log.Level = "debug"
	b.Skills = []SkillConfig{{ID: "echo", Endpoint: "http://echo"}}
	assert.Equal(t, []string{"skills", "log"}, ChangedSections(a, b))
	assert.Nil(t, ChangedSections(nil, b))
}
