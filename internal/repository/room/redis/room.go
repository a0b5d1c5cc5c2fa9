package redis

import (
	"context"
	"fmt"

	"github.com/reactsync/server/internal/repository/room"
)

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	funcName := "room.redis.CreateRoom"
	r.logger.DebugContext(ctx, funcName, "params", params)

	roomKey := r.getRoomKey(params.RoomID)

	exists, err := r.rc.Exists(ctx, roomKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}
	if exists > 0 {
		return room.ErrRoomAlreadyExists
	}

	rm := room.Room{
		RoomID:    params.RoomID,
		HostID:    params.HostID,
		PlayState: "paused",
	}
	if err := r.rc.HSet(ctx, roomKey, r.roomFields(&rm)).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}
	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return r.publishEvent(ctx, params.RoomID, &room.Event{
		Kind:   room.EventUpdate,
		RoomID: params.RoomID,
		New:    &rm,
	})
}

func (r repo) GetRoom(ctx context.Context, roomID string) (room.Room, error) {
	funcName := "room.redis.GetRoom"
	r.logger.DebugContext(ctx, funcName, "roomID", roomID)

	rm, err := r.getRoomSnapshot(ctx, roomID)
	if err != nil {
		return room.Room{}, err
	}
	if rm == nil {
		return room.Room{}, room.ErrRoomNotFound
	}

	r.rc.Expire(ctx, r.getRoomKey(roomID), r.expireDuration)

	return *rm, nil
}

// UpsertPlayback writes the full playback payload, creating the record if
// it is missing. Concurrent writers are resolved by last write wins.
func (r repo) UpsertPlayback(ctx context.Context, params *room.UpsertPlaybackParams) error {
	funcName := "room.redis.UpsertPlayback"
	r.logger.DebugContext(ctx, funcName, "params", params)

	old, err := r.getRoomSnapshot(ctx, params.RoomID)
	if err != nil {
		return err
	}

	updated := room.Room{
		RoomID:        params.RoomID,
		PlayState:     params.PlayState,
		CurrentTime:   params.CurrentTime,
		VideoID:       params.VideoID,
		Provider:      params.Provider,
		ShowTitle:     params.ShowTitle,
		EpisodeTitle:  params.EpisodeTitle,
		EpisodeNumber: params.EpisodeNumber,
		UpdatedAt:     params.UpdatedAt,
	}
	if old != nil {
		updated.HostID = old.HostID
		updated.ViewerCount = old.ViewerCount
	}

	roomKey := r.getRoomKey(params.RoomID)
	if err := r.rc.HSet(ctx, roomKey, r.roomFields(&updated)).Err(); err != nil {
		return fmt.Errorf("failed to upsert playback: %w", err)
	}
	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return r.publishEvent(ctx, params.RoomID, &room.Event{
		Kind:   room.EventUpdate,
		RoomID: params.RoomID,
		Old:    old,
		New:    &updated,
	})
}

// SetHost stores the host pointer, empty meaning no host. The
// check-then-set claim sequence lives in the session service; this is the
// set half.
func (r repo) SetHost(ctx context.Context, roomID string, hostID string) error {
	funcName := "room.redis.SetHost"
	r.logger.DebugContext(ctx, funcName, "roomID", roomID, "hostID", hostID)

	old, err := r.getRoomSnapshot(ctx, roomID)
	if err != nil {
		return err
	}
	if old == nil {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, r.getRoomKey(roomID), "host_id", hostID).Err(); err != nil {
		return fmt.Errorf("failed to set host: %w", err)
	}

	updated := *old
	updated.HostID = hostID

	return r.publishEvent(ctx, roomID, &room.Event{
		Kind:   room.EventUpdate,
		RoomID: roomID,
		Old:    old,
		New:    &updated,
	})
}

func (r repo) UpdateViewerCount(ctx context.Context, roomID string, count int) error {
	funcName := "room.redis.UpdateViewerCount"
	r.logger.DebugContext(ctx, funcName, "roomID", roomID, "count", count)

	old, err := r.getRoomSnapshot(ctx, roomID)
	if err != nil {
		return err
	}
	if old == nil {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, r.getRoomKey(roomID), "viewer_count", count).Err(); err != nil {
		return fmt.Errorf("failed to update viewer count: %w", err)
	}

	updated := *old
	updated.ViewerCount = count

	return r.publishEvent(ctx, roomID, &room.Event{
		Kind:   room.EventUpdate,
		RoomID: roomID,
		Old:    old,
		New:    &updated,
	})
}

func (r repo) DeleteRoom(ctx context.Context, roomID string) error {
	funcName := "room.redis.DeleteRoom"
	r.logger.DebugContext(ctx, funcName, "roomID", roomID)

	old, err := r.getRoomSnapshot(ctx, roomID)
	if err != nil {
		return err
	}
	if old == nil {
		return room.ErrRoomNotFound
	}

	if err := r.rc.Del(ctx, r.getRoomKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return r.publishEvent(ctx, roomID, &room.Event{
		Kind:   room.EventDelete,
		RoomID: roomID,
		Old:    old,
	})
}
