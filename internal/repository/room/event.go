package room

import "golang.org/x/exp/slices"

type EventKind string

const (
	EventUpdate   EventKind = "update"
	EventDelete   EventKind = "delete"
	EventPresence EventKind = "presence"
)

// Event is one change delivered by a room subscription. Update events carry
// both snapshots so consumers can diff fields; presence events carry the
// subscriber count.
type Event struct {
	Kind    EventKind `json:"kind"`
	RoomID  string    `json:"room_id"`
	Old     *Room     `json:"old,omitempty"`
	New     *Room     `json:"new,omitempty"`
	Members int       `json:"members,omitempty"`
}

// Subscription is a per-room change feed. Events are delivered in
// store-commit order; the channel closes on Close.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// ChangedFields returns the sorted field names whose values differ between
// two snapshots. A nil snapshot counts as all-fields-changed.
func ChangedFields(old, new *Room) []string {
	oldFields := fieldMap(old)
	newFields := fieldMap(new)

	changed := make([]string, 0, len(newFields))
	for name, value := range newFields {
		if oldFields[name] != value {
			changed = append(changed, name)
		}
	}
	for name := range oldFields {
		if _, ok := newFields[name]; !ok {
			changed = append(changed, name)
		}
	}

	slices.Sort(changed)

	return changed
}

func fieldMap(r *Room) map[string]any {
	if r == nil {
		return nil
	}

	return map[string]any{
		"room_id":        r.RoomID,
		"host_id":        r.HostID,
		"provider":       r.Provider,
		"video_id":       r.VideoID,
		"play_state":     r.PlayState,
		"current_time":   r.CurrentTime,
		"updated_at":     r.UpdatedAt,
		"show_title":     r.ShowTitle,
		"episode_title":  r.EpisodeTitle,
		"episode_number": r.EpisodeNumber,
		"viewer_count":   r.ViewerCount,
	}
}
