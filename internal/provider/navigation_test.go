package provider

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchNavigation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths := make(chan string)
	var fired atomic.Int32
	go WatchNavigation(ctx, paths, "/watch/1", 10*time.Millisecond, func() {
		fired.Add(1)
	})

	// same path: no navigation
	paths <- "/watch/1"
	// off-watch route: ignored
	paths <- "/browse"
	// burst of watch-route mutations debounces to one reset
	paths <- "/watch/2"
	paths <- "/watch/3"

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	paths <- "/watch/4"
	assert.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, 5*time.Millisecond)
}
