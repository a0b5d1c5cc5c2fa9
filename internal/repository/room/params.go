package room

type CreateRoomParams struct {
	RoomID string
	HostID string
}

type UpsertPlaybackParams struct {
	RoomID        string
	PlayState     string
	CurrentTime   float64
	VideoID       string
	Provider      string
	ShowTitle     string
	EpisodeTitle  string
	EpisodeNumber string
	UpdatedAt     int64
}
