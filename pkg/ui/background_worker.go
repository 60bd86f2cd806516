// This file implements the BackgroundWorker that forwards config reloads to
// the editor loop.
package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/vanderheijden86/qb/pkg/config"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is created but not watching.
	WorkerIdle WorkerState = iota
	// WorkerWatching means the config file is being watched.
	WorkerWatching
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// ConfigReloadedMsg carries a configuration re-read from disk.
type ConfigReloadedMsg struct {
	Config config.Config
}

// BackgroundWorker watches the config file off the UI thread. Reloads are
// coalesced: if the editor has not picked up a reload yet, a newer one
// replaces it.
type BackgroundWorker struct {
	configPath string
	log        *zap.Logger

	mu      sync.Mutex
	state   WorkerState
	reloads int
	watcher *config.Watcher

	updates chan config.Config

	ctx    context.Context
	cancel context.CancelFunc
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	ConfigPath string
	Logger     *zap.Logger
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) *BackgroundWorker {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundWorker{
		configPath: cfg.ConfigPath,
		log:        cfg.Logger,
		state:      WorkerIdle,
		updates:    make(chan config.Config, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins watching the config file. Start is idempotent. Without a
// config path the worker stays idle.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != WorkerIdle || w.configPath == "" {
		return nil
	}

	cw, err := config.Watch(w.configPath, w.publish, w.log)
	if err != nil {
		return err
	}
	w.watcher = cw
	w.state = WorkerWatching
	return nil
}

// Stop halts the worker. Stop is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	cw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	w.cancel()
	if cw != nil {
		cw.Stop()
	}
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Reloads returns how many reloads have been published.
func (w *BackgroundWorker) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// publish hands cfg to the editor, replacing an unconsumed older config.
func (w *BackgroundWorker) publish(cfg config.Config) {
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	for {
		select {
		case w.updates <- cfg:
			return
		case <-w.ctx.Done():
			return
		default:
			select {
			case <-w.updates:
			default:
			}
		}
	}
}

// WaitForReload returns a command that blocks until the next reload. It
// yields nil once the worker is stopped. The editor re-issues it after each
// ConfigReloadedMsg.
func (w *BackgroundWorker) WaitForReload() tea.Cmd {
	return func() tea.Msg {
		select {
		case cfg := <-w.updates:
			return ConfigReloadedMsg{Config: cfg}
		case <-w.ctx.Done():
			return nil
		}
	}
}
