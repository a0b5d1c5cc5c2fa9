package bus

import (
	"context"
	"errors"

	"github.com/reactsync/server/internal/domain"
)

var ErrContextNotFound = errors.New("context not found")

// BackgroundContext is the well-known id of the relay coordinator's
// context. Page contexts get generated ids.
const BackgroundContext = "background"

// Handler receives a message addressed to one context. sender is the
// originating context id. The returned message, when non-nil, is the
// synchronous response delivered back to the sender.
type Handler func(ctx context.Context, sender string, msg domain.Message) (domain.Message, error)
