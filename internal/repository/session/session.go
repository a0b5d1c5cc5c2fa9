package session

import "errors"

var ErrKeyNotFound = errors.New("key not found")

// Keys of the per-browser session state. The store itself is schemaless;
// these are the keys the sync core reads and writes.
const (
	KeyUserID    = "user_id"
	KeyRole      = "role"
	KeyRoomID    = "roomId"
	KeyProvider  = "provider"
	KeyVideoID   = "videoId"
	KeyChannelID = "channelId"
)

// Diff describes one key's change. Empty strings mean the key was absent
// on that side.
type Diff struct {
	Old string
	New string
}

// ChangeFunc observes completed mutations. Callbacks run after the write
// is visible.
type ChangeFunc func(changed map[string]Diff)
