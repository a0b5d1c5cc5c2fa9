package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reactsync/server/internal/repository/room"
)

func (r repo) publishEvent(ctx context.Context, roomID string, event *room.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal room event: %w", err)
	}

	if err := r.rc.Publish(ctx, r.getEventsKey(roomID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish room event: %w", err)
	}

	return nil
}

// getRoomSnapshot returns nil without error when the room does not exist,
// so callers can build update events with an absent old side.
func (r repo) getRoomSnapshot(ctx context.Context, roomID string) (*room.Room, error) {
	roomKey := r.getRoomKey(roomID)

	exists, err := r.rc.Exists(ctx, roomKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check if room exists: %w", err)
	}
	if exists == 0 {
		return nil, nil
	}

	var rm room.Room
	if err := r.rc.HGetAll(ctx, roomKey).Scan(&rm); err != nil {
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}

	return &rm, nil
}

func (r repo) roomFields(rm *room.Room) map[string]any {
	return map[string]any{
		"room_id":        rm.RoomID,
		"host_id":        rm.HostID,
		"provider":       rm.Provider,
		"video_id":       rm.VideoID,
		"play_state":     rm.PlayState,
		"current_time":   rm.CurrentTime,
		"updated_at":     rm.UpdatedAt,
		"show_title":     rm.ShowTitle,
		"episode_title":  rm.EpisodeTitle,
		"episode_number": rm.EpisodeNumber,
		"viewer_count":   rm.ViewerCount,
	}
}
