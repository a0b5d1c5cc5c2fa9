package domain

type Role string

const (
	RoleHost     Role = "host"
	RoleAudience Role = "audience"
)

// ParseRole maps any stored value to a role, defaulting to audience.
func ParseRole(s string) Role {
	if s == string(RoleHost) {
		return RoleHost
	}

	return RoleAudience
}

type PlayState string

const (
	PlayStatePlaying PlayState = "playing"
	PlayStatePaused  PlayState = "paused"
	// PlayStateSkip is an explicit scrub command carrying an absolute seek
	// target. It is only ever produced by manual tooling, never by the
	// ordinary playback path.
	PlayStateSkip PlayState = "skip"
)

// DebugVideoID is a sentinel video id that must never trigger a
// cross-video redirect on audience members.
const DebugVideoID = "debug"
