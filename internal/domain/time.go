package domain

import (
	"math"
	"time"
)

// TimeWithDelta derives the host's true playback position from a stamped
// snapshot: whole seconds elapsed since updatedAt added to currentTime.
// updatedAt is unix milliseconds as stamped by the relay at write time.
// Callers must pass the room record's updatedAt, never a locally cached
// clock.
func TimeWithDelta(currentTime float64, updatedAt int64, now time.Time) float64 {
	if currentTime <= 0 {
		return 0
	}
	if updatedAt <= 0 {
		return currentTime
	}

	diffSeconds := math.Floor(float64(now.UnixMilli()-updatedAt) / 1000)

	return diffSeconds + currentTime
}

// SyncTarget computes the position an audience member should reconcile to.
// Elapsed time only accrues while the host is playing; a paused snapshot
// is exact.
func SyncTarget(state PlayState, currentTime float64, updatedAt int64, now time.Time) float64 {
	if state == PlayStatePlaying {
		return TimeWithDelta(currentTime, updatedAt, now)
	}

	return currentTime
}
