package domain

// Metadata is the extracted identity of the currently playing content.
// Any field may be empty when the page does not expose it.
type Metadata struct {
	VideoID       string `json:"videoId"`
	ShowTitle     string `json:"showTitle"`
	EpisodeTitle  string `json:"episodeTitle"`
	EpisodeNumber string `json:"episodeNumber"`
}
