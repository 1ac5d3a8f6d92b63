// 配置热重载。
//
// 文件变更后重新执行 Loader，校验通过才替换当前配置并通知订阅者。
package config

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ReloadCallback 新配置生效后调用
type ReloadCallback func(oldConfig, newConfig *Config)

// Reloader 持有当前配置，并在配置文件变化时重新加载
type Reloader struct {
	mu        sync.RWMutex
	loader    *Loader
	current   *Config
	version   int
	callbacks []ReloadCallback

	watcher *FileWatcher
	logger  *zap.Logger
}

// NewReloader 以 initial 作为当前配置；loader 需已设置配置文件路径
func NewReloader(loader *Loader, initial *Config, logger *zap.Logger, opts ...WatcherOption) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reloader{
		loader:  loader,
		current: initial,
		version: 1,
		logger:  logger.With(zap.String("component", "config_reloader")),
	}
	opts = append([]WatcherOption{WithWatcherLogger(logger)}, opts...)
	r.watcher = NewFileWatcher(loader.configPath, opts...)
	r.watcher.OnChange(func(evt FileEvent) {
		if evt.Op == FileOpRemove {
			r.logger.Warn("config file removed, keeping current config")
			return
		}
		if err := r.Reload(); err != nil {
			r.logger.Error("config reload rejected", zap.Error(err))
		}
	})
	return r
}

// OnReload 注册回调
func (r *Reloader) OnReload(cb ReloadCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Current 返回当前配置，调用方不得修改
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Version 每次成功重载后递增
func (r *Reloader) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Reload 重新加载并校验；失败时保留旧配置
func (r *Reloader) Reload() error {
	next, err := r.loader.Load()
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.current
	if reflect.DeepEqual(prev, next) {
		r.mu.Unlock()
		return nil
	}
	r.current = next
	r.version++
	version := r.version
	callbacks := append([]ReloadCallback{}, r.callbacks...)
	r.mu.Unlock()

	r.logger.Info("config reloaded",
		zap.Int("version", version),
		zap.Strings("changed", ChangedSections(prev, next)))

	for _, cb := range callbacks {
		r.notify(cb, prev, next)
	}
	return nil
}

func (r *Reloader) notify(cb ReloadCallback, prev, next *Config) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("config reload callback panicked", zap.String("panic", fmt.Sprint(v)))
		}
	}()
	cb(prev, next)
}

// Start 启动文件监听
func (r *Reloader) Start(ctx context.Context) error {
	return r.watcher.Start(ctx)
}

// Stop 停止文件监听
func (r *Reloader) Stop() {
	r.watcher.Stop()
}

// ChangedSections 返回两份配置中取值不同的顶层段名（yaml 名）
func ChangedSections(prev, next *Config) []string {
	if prev == nil || next == nil {
		return nil
	}
	pv, nv := reflect.ValueOf(*prev), reflect.ValueOf(*next)
	t := pv.Type()

	var changed []string
	for i := 0; i < t.NumField(); i++ {
		if !reflect.DeepEqual(pv.Field(i).Interface(), nv.Field(i).Interface()) {
			changed = append(changed, t.Field(i).Tag.Get("yaml"))
		}
	}
	return changed
}
