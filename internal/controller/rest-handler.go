package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reactsync/server/internal/repository/room"
	"github.com/reactsync/server/internal/service/session"
)

type errorOutput struct {
	Error string `json:"error"`
}

func (c controller) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.logger.Debug("failed to write response", "error", err)
	}
}

func (c controller) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		c.writeJSON(w, http.StatusNotFound, errorOutput{Error: "room not found"})
	case errors.Is(err, session.ErrHostAlreadyExists):
		c.writeJSON(w, http.StatusConflict, errorOutput{Error: "room already has a host"})
	case errors.Is(err, session.ErrNotInRoom):
		c.writeJSON(w, http.StatusConflict, errorOutput{Error: "not in a room"})
	default:
		c.writeJSON(w, http.StatusInternalServerError, errorOutput{Error: "internal error"})
	}
}

type createRoomOutput struct {
	RoomID     string `json:"roomId"`
	VideoFound bool   `json:"videoFound"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := c.sessionService.CreateRoom(r.Context(), &session.CreateRoomParams{
		ContentID: r.URL.Query().Get("context-id"),
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to create room", "error", err)
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusOK, createRoomOutput{RoomID: resp.RoomID, VideoFound: resp.VideoFound})
}

type joinRoomOutput struct {
	Role        string `json:"role"`
	ViewerCount int    `json:"viewerCount"`
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := c.sessionService.JoinRoom(r.Context(), &session.JoinRoomParams{
		RoomID:    chi.URLParam(r, "room-id"),
		ContentID: r.URL.Query().Get("context-id"),
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to join room", "error", err)
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusOK, joinRoomOutput{Role: string(resp.Role), ViewerCount: resp.ViewerCount})
}

func (c controller) claimHost(w http.ResponseWriter, r *http.Request) {
	if err := c.sessionService.ClaimHost(r.Context()); err != nil {
		c.logger.InfoContext(r.Context(), "failed to claim host", "error", err)
		c.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) releaseHost(w http.ResponseWriter, r *http.Request) {
	if err := c.sessionService.ReleaseHost(r.Context()); err != nil {
		c.logger.InfoContext(r.Context(), "failed to release host", "error", err)
		c.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) leaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.sessionService.LeaveRoom(r.Context()); err != nil {
		c.logger.InfoContext(r.Context(), "failed to leave room", "error", err)
		c.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) closeRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.sessionService.CloseRoom(r.Context()); err != nil {
		c.logger.InfoContext(r.Context(), "failed to close room", "error", err)
		c.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
