package domain

import "fmt"

// Provider is a supported streaming site. Adapters are hard-coded per
// provider, there is no plugin mechanism.
type Provider string

const (
	ProviderNetflix     Provider = "netflix"
	ProviderCrunchyroll Provider = "crunchyroll"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderNetflix, ProviderCrunchyroll:
		return true
	}

	return false
}

// WatchURL builds the canonical watch page url for a provider-specific
// video id. Seconds greater than zero are carried as a ?t= query param.
func (p Provider) WatchURL(videoID string, seconds int) string {
	var timestamp string
	if seconds > 0 {
		timestamp = fmt.Sprintf("?t=%d", seconds)
	}

	switch p {
	case ProviderNetflix:
		return "https://www.netflix.com" + videoID + timestamp
	case ProviderCrunchyroll:
		return "https://www.crunchyroll.com" + videoID + timestamp
	}

	return ""
}
