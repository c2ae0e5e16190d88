package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

func waitForChange(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-watcher.Errors:
		return err
	case <-watcher.Events:
	}
	// Editors tend to write in several steps; let the file settle.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second / 10):
	}
	return ctx.Err()
}

// Watch delivers a freshly loaded config every time the file at path changes.
// Files that fail to load or validate are logged and skipped. The channel is
// closed when ctx is done.
func Watch(ctx context.Context, path string) <-chan *Config {
	c := make(chan *Config)
	go func() {
		defer close(c)
		for ctx.Err() == nil {
			if err := waitForChange(ctx, path); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("Error waiting for config change: %v", err)
				// The file may have been replaced; retry after a pause.
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			config, err := FromFile(path)
			if err != nil {
				log.Errorf("Failed to load new config: %v", err)
				continue
			}
			config.ApplyEnv()
			if err := config.Validate(); err != nil {
				log.Errorf("Ignoring config change: %v", err)
				continue
			}
			log.Infof("Config %v changed", path)
			select {
			case c <- config:
			case <-ctx.Done():
				return
			}
		}
	}()
	return c
}
