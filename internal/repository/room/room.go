package room

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
)

// Room is the server-resident record of one active watch session. One row
// per room, last write wins.
type Room struct {
	RoomID        string  `json:"room_id" redis:"room_id"`
	HostID        string  `json:"host_id" redis:"host_id"`
	Provider      string  `json:"provider" redis:"provider"`
	VideoID       string  `json:"video_id" redis:"video_id"`
	PlayState     string  `json:"play_state" redis:"play_state"`
	CurrentTime   float64 `json:"current_time" redis:"current_time"`
	UpdatedAt     int64   `json:"updated_at" redis:"updated_at"`
	ShowTitle     string  `json:"show_title" redis:"show_title"`
	EpisodeTitle  string  `json:"episode_title" redis:"episode_title"`
	EpisodeNumber string  `json:"episode_number" redis:"episode_number"`
	ViewerCount   int     `json:"viewer_count" redis:"viewer_count"`
}
