package molrender

import (
	"context"
	"errors"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
)

// ErrUnparseable is the definite "no image" signal: a malformed structure
// string, or a deployment without the drawing tool. It is never fatal to an
// import.
var ErrUnparseable = errors.New("structure string could not be rendered")

const (
	ImageWidth  = 300
	ImageHeight = 200
)

// Renderer rasterizes a SMILES structure string into a fixed-size PNG.
type Renderer interface {
	Render(ctx context.Context, smiles string) ([]byte, error)
}

// New picks the backend at process start: the Open Babel backend when the
// binary is on PATH, otherwise a no-op that degrades every call to
// ErrUnparseable.
func New(log *logger.Logger) Renderer {
	r, err := NewOpenBabel(log)
	if err != nil {
		log.Warn("Structure drawing tool unavailable, molecule images disabled", "error", err)
		return NewNoop(log)
	}
	return r
}

type noopRenderer struct {
	log *logger.Logger
}

func NewNoop(log *logger.Logger) Renderer {
	return &noopRenderer{log: log.With("renderer", "noop")}
}

func (r *noopRenderer) Render(ctx context.Context, smiles string) ([]byte, error) {
	return nil, ErrUnparseable
}
