package provider

import (
	"context"
	"strings"
	"time"
)

// WatchNavigation consumes in-page path changes from a single-page app and
// invokes onNewVideo for navigations that land on a watch page. Changes
// are debounced because SPA route transitions mutate the DOM in bursts.
// The watcher stops when ctx is done or paths closes.
func WatchNavigation(ctx context.Context, paths <-chan string, initialPath string, debounce time.Duration, onNewVideo func()) {
	lastPath := initialPath

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fire:
			fire = nil
			onNewVideo()
		case path, ok := <-paths:
			if !ok {
				return
			}
			if path == lastPath {
				continue
			}
			lastPath = path
			if !strings.HasPrefix(path, "/watch") {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		}
	}
}
