package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/repository/room"
	sessionrepo "github.com/reactsync/server/internal/repository/session"
)

// EnsureUser returns the stored user id, minting one on first use. The id
// survives for the lifetime of the session store, never longer.
func (s *service) EnsureUser(ctx context.Context) (string, error) {
	values, err := s.sessionRepo.Get(ctx, sessionrepo.KeyUserID)
	if err != nil {
		return "", fmt.Errorf("failed to load user id: %w", err)
	}
	if userID := values[sessionrepo.KeyUserID]; userID != "" {
		return userID, nil
	}

	userID := uuid.NewString()
	if err := s.sessionRepo.Set(ctx, map[string]string{sessionrepo.KeyUserID: userID}); err != nil {
		return "", fmt.Errorf("failed to store user id: %w", err)
	}

	s.logger.InfoContext(ctx, "minted user id", "user_id", userID)

	return userID, nil
}

// CreateRoom sets up a fresh room with the caller as host. A room the
// caller was already hosting is closed first so stale rooms never pile
// up behind a single host.
func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	userID, err := s.EnsureUser(ctx)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	values, err := s.sessionRepo.Get(ctx, sessionrepo.KeyRoomID, sessionrepo.KeyRole)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to load session: %w", err)
	}
	if oldRoomID := values[sessionrepo.KeyRoomID]; oldRoomID != "" &&
		domain.ParseRole(values[sessionrepo.KeyRole]) == domain.RoleHost {
		if err := s.roomRepo.DeleteRoom(ctx, oldRoomID); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			return CreateRoomResponse{}, fmt.Errorf("failed to close previous room: %w", err)
		}
	}

	roomID, err := s.createWithFreshID(ctx, userID)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	if err := s.sessionRepo.Set(ctx, map[string]string{
		sessionrepo.KeyRoomID: roomID,
		sessionrepo.KeyRole:   string(domain.RoleHost),
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.InfoContext(ctx, "created room", "room_id", roomID, "user_id", userID)

	return CreateRoomResponse{
		RoomID:     roomID,
		VideoFound: s.probeContent(ctx, params.ContentID, domain.RoleHost),
	}, nil
}

func (s *service) createWithFreshID(ctx context.Context, userID string) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		roomID := s.generator.GenerateRandomString(roomIDLength)
		err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{RoomID: roomID, HostID: userID})
		if errors.Is(err, room.ErrRoomAlreadyExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create room: %w", err)
		}
		return roomID, nil
	}

	return "", fmt.Errorf("failed to create room: id space exhausted")
}

// JoinRoom attaches the caller to an existing room. A returning host is
// recognized by the stored host pointer and resumes hosting.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	userID, err := s.EnsureUser(ctx)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to load room: %w", err)
	}

	role := domain.RoleAudience
	if rm.HostID == userID {
		role = domain.RoleHost
	}

	if err := s.sessionRepo.Set(ctx, map[string]string{
		sessionrepo.KeyRoomID: params.RoomID,
		sessionrepo.KeyRole:   string(role),
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.InfoContext(ctx, "joined room", "room_id", params.RoomID, "user_id", userID, "role", role)

	s.probeContent(ctx, params.ContentID, role)

	return JoinRoomResponse{Role: role, ViewerCount: rm.ViewerCount}, nil
}

// ClaimHost promotes the caller to host when the seat is empty. The check
// and the write are separate steps, matching the storage's lack of a
// compare-and-set, so two simultaneous claims can both pass the check and
// the later writer wins.
func (s *service) ClaimHost(ctx context.Context) error {
	userID, err := s.EnsureUser(ctx)
	if err != nil {
		return err
	}

	roomID, err := s.currentRoomID(ctx)
	if err != nil {
		return err
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}
	if rm.HostID != "" && rm.HostID != userID {
		return ErrHostAlreadyExists
	}

	if err := s.roomRepo.SetHost(ctx, roomID, userID); err != nil {
		return fmt.Errorf("failed to claim host: %w", err)
	}
	if err := s.sessionRepo.Set(ctx, map[string]string{sessionrepo.KeyRole: string(domain.RoleHost)}); err != nil {
		return fmt.Errorf("failed to store role: %w", err)
	}

	return nil
}

// ReleaseHost vacates the host seat so someone else can claim it.
func (s *service) ReleaseHost(ctx context.Context) error {
	userID, err := s.EnsureUser(ctx)
	if err != nil {
		return err
	}

	roomID, err := s.currentRoomID(ctx)
	if err != nil {
		return err
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}
	if rm.HostID != userID {
		return nil
	}

	if err := s.roomRepo.SetHost(ctx, roomID, ""); err != nil {
		return fmt.Errorf("failed to release host: %w", err)
	}
	if err := s.sessionRepo.Set(ctx, map[string]string{sessionrepo.KeyRole: string(domain.RoleAudience)}); err != nil {
		return fmt.Errorf("failed to store role: %w", err)
	}

	return nil
}

// LeaveRoom detaches the caller without closing the room. A leaving host
// vacates the seat so the remaining members are not locked out of it.
func (s *service) LeaveRoom(ctx context.Context) error {
	values, err := s.sessionRepo.Get(ctx, sessionrepo.KeyRoomID, sessionrepo.KeyRole, sessionrepo.KeyUserID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	roomID := values[sessionrepo.KeyRoomID]
	if roomID == "" {
		return ErrNotInRoom
	}

	if domain.ParseRole(values[sessionrepo.KeyRole]) == domain.RoleHost {
		if err := s.roomRepo.SetHost(ctx, roomID, ""); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			s.logger.InfoContext(ctx, "failed to vacate host seat", "room_id", roomID, "error", err)
		}
	}

	if err := s.sessionRepo.Remove(ctx,
		sessionrepo.KeyRoomID, sessionrepo.KeyRole, sessionrepo.KeyVideoID, sessionrepo.KeyProvider,
	); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.logger.InfoContext(ctx, "left room", "room_id", roomID)

	return nil
}

// CloseRoom deletes the caller's room for everyone. Subscribed
// coordinators observe the deletion and tear their sessions down.
func (s *service) CloseRoom(ctx context.Context) error {
	roomID, err := s.currentRoomID(ctx)
	if err != nil {
		return err
	}

	if err := s.roomRepo.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	if err := s.sessionRepo.Remove(ctx,
		sessionrepo.KeyRoomID, sessionrepo.KeyRole, sessionrepo.KeyVideoID, sessionrepo.KeyProvider,
	); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.logger.InfoContext(ctx, "closed room", "room_id", roomID)

	return nil
}

func (s *service) currentRoomID(ctx context.Context) (string, error) {
	values, err := s.sessionRepo.Get(ctx, sessionrepo.KeyRoomID)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if values[sessionrepo.KeyRoomID] == "" {
		return "", ErrNotInRoom
	}

	return values[sessionrepo.KeyRoomID], nil
}

// probeContent pushes the new role to the active tab and asks whether it
// has a playable video. Both are best effort: no active tab is a normal
// popup situation, not an error.
func (s *service) probeContent(ctx context.Context, contentID string, role domain.Role) bool {
	if contentID == "" {
		return false
	}

	if _, err := s.bus.Send(ctx, bus.BackgroundContext, contentID, domain.RoleUpdate{Role: role}); err != nil {
		s.logger.DebugContext(ctx, "failed to push role", "context_id", contentID, "error", err)
		return false
	}

	reply, err := s.bus.Send(ctx, bus.BackgroundContext, contentID, domain.RequestState{})
	if err != nil {
		s.logger.DebugContext(ctx, "failed to probe content", "context_id", contentID, "error", err)
		return false
	}

	resp, ok := reply.(domain.StateResponse)

	return ok && resp.VideoFound
}
