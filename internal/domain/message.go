package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates the wire messages exchanged between page
// contexts and the relay. The payload shapes are flat: the type field is a
// sibling of the payload fields.
type MessageType string

const (
	MessageVideoUpdate       MessageType = "video-update"
	MessageSyncUpdate        MessageType = "sync-update"
	MessageRoleUpdate        MessageType = "role-update"
	MessageRequestState      MessageType = "request-state"
	MessageStateResponse     MessageType = "state-response"
	MessageRoomClosed        MessageType = "room-closed"
	MessageRegisterContent   MessageType = "register-content"
	MessageUnregisterContent MessageType = "unregister-content"
)

var ErrUnknownMessageType = fmt.Errorf("unknown message type")

type Message interface {
	MessageType() MessageType
}

// VideoUpdate carries a host's local playback state to the relay.
type VideoUpdate struct {
	PlayState     PlayState `json:"play_state" validate:"required,oneof=playing paused"`
	CurrentTime   float64   `json:"current_time" validate:"gte=0"`
	VideoID       string    `json:"video_id" validate:"required"`
	Provider      Provider  `json:"provider" validate:"required,oneof=netflix crunchyroll"`
	ShowTitle     string    `json:"show_title"`
	EpisodeTitle  string    `json:"episode_title"`
	EpisodeNumber string    `json:"episode_number"`
}

func (VideoUpdate) MessageType() MessageType { return MessageVideoUpdate }

// SyncUpdate carries the room's persisted playback state to audience
// members.
type SyncUpdate struct {
	State         PlayState `json:"state"`
	Time          float64   `json:"time"`
	VideoID       string    `json:"video_id"`
	Provider      Provider  `json:"provider"`
	ShowTitle     string    `json:"show_title"`
	EpisodeTitle  string    `json:"episode_title"`
	EpisodeNumber string    `json:"episode_number"`
	UpdatedAt     int64     `json:"updated_at"`
	ViewerCount   int       `json:"viewer_count"`
}

func (SyncUpdate) MessageType() MessageType { return MessageSyncUpdate }

type RoleUpdate struct {
	Role Role `json:"role"`
}

func (RoleUpdate) MessageType() MessageType { return MessageRoleUpdate }

type RequestState struct{}

func (RequestState) MessageType() MessageType { return MessageRequestState }

// StateResponse answers a RequestState so the caller can detect "no
// playable video yet".
type StateResponse struct {
	VideoFound bool `json:"videoFound"`
}

func (StateResponse) MessageType() MessageType { return MessageStateResponse }

type RoomClosed struct {
	RoomID string `json:"roomId"`
}

func (RoomClosed) MessageType() MessageType { return MessageRoomClosed }

type RegisterContent struct{}

func (RegisterContent) MessageType() MessageType { return MessageRegisterContent }

type UnregisterContent struct{}

func (UnregisterContent) MessageType() MessageType { return MessageUnregisterContent }

// EncodeMessage marshals a message with its "type" field inlined next to
// the payload fields.
func EncodeMessage(m Message) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten message: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}

	fields["type"], err = json.Marshal(m.MessageType())
	if err != nil {
		return nil, err
	}

	return json.Marshal(fields)
}

// DecodeMessage decodes a wire message into its concrete shape. Messages
// with an unrecognized type are rejected, not silently ignored.
func DecodeMessage(data []byte) (Message, error) {
	var env struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message envelope: %w", err)
	}

	switch env.Type {
	case MessageVideoUpdate:
		var m VideoUpdate
		return m, json.Unmarshal(data, &m)
	case MessageSyncUpdate:
		var m SyncUpdate
		return m, json.Unmarshal(data, &m)
	case MessageRoleUpdate:
		var m RoleUpdate
		return m, json.Unmarshal(data, &m)
	case MessageRequestState:
		return RequestState{}, nil
	case MessageStateResponse:
		var m StateResponse
		return m, json.Unmarshal(data, &m)
	case MessageRoomClosed:
		var m RoomClosed
		return m, json.Unmarshal(data, &m)
	case MessageRegisterContent:
		return RegisterContent{}, nil
	case MessageUnregisterContent:
		return UnregisterContent{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
}
