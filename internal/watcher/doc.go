// Package watcher re-classifies installs whose game executable changes on
// disk.
//
// The Watcher subscribes to the directories holding each tracked
// executable. Create, write and rename events touching a tracked path are
// collected until the directory has been quiet for the debounce interval,
// then the handler runs once per affected install.
//
// Key features:
//   - fsnotify directory watches (one per install directory)
//   - Debounced, per-install handler calls from a single goroutine
//   - Daemon mode support with PID file management
//   - Graceful shutdown with SIGTERM/SIGINT handling
//
// Example usage:
//
//	w, err := watcher.New(func(ctx context.Context, name string) error {
//		inst, err := registry.Get(name)
//		if err != nil {
//			return err
//		}
//		_, err = classifier.Classify(ctx, inst)
//		return err
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := w.SetInstalls(registry.List()); err != nil {
//		log.Fatal(err)
//	}
//	if err := w.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
package watcher
