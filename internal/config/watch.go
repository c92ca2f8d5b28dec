package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/tuai/tuaid/internal/protection"
)

// WatchProtectConfig watches path for writes and reloads/rebuilds policy on
// each one, matching the "rebuild-on-edit" invariant spec.md §4.5 already
// requires for programmatic mutation — this just triggers it from the
// filesystem too. Returns the started watcher so the caller can Close() it
// at shutdown; a watch failure is logged and treated as non-fatal since the
// policy still works with whatever was loaded at startup.
func WatchProtectConfig(path string, policy *protection.Policy, log *slog.Logger) *fsnotify.Watcher {
	if path == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "config-watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify unavailable, protect-config hot reload disabled", "error", err)
		return nil
	}
	if err := watcher.Add(path); err != nil {
		log.Warn("watch protect-config failed", "path", path, "error", err)
		watcher.Close()
		return nil
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				rule, err := protection.LoadConfigFile(path)
				if err != nil {
					log.Warn("reload protect-config failed, keeping previous rule", "path", path, "error", err)
					continue
				}
				policy.SetRule(rule)
				log.Info("protect-config reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("fsnotify error", "error", err)
			}
		}
	}()

	return watcher
}
