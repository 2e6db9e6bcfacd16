package molrender

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ambralab/tpdb-backend/internal/platform/envutil"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
)

// openBabelRenderer shells out to the Open Babel binary. Structure parsing
// and 2D depiction stay in the external tool; this wrapper only handles
// process plumbing and canvas normalization.
type openBabelRenderer struct {
	log        *logger.Logger
	binaryPath string
}

func NewOpenBabel(log *logger.Logger) (Renderer, error) {
	binary := envutil.Str("OBABEL_PATH", "obabel")
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("obabel binary %q not found: %w", binary, err)
	}
	return &openBabelRenderer{
		log:        log.With("renderer", "obabel"),
		binaryPath: resolved,
	}, nil
}

func (r *openBabelRenderer) Render(ctx context.Context, smiles string) ([]byte, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, ErrUnparseable
	}

	dir, err := os.MkdirTemp("", "molrender-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	outPath := filepath.Join(dir, "molecule.png")
	cmd := exec.CommandContext(ctx, r.binaryPath,
		"-:"+smiles,
		"-O", outPath,
		"-xw", fmt.Sprint(ImageWidth),
		"-xh", fmt.Sprint(ImageHeight),
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.log.Debug("obabel rejected structure string", "output", strings.TrimSpace(string(output)))
		return nil, ErrUnparseable
	}

	raw, err := os.ReadFile(outPath)
	if err != nil || len(raw) == 0 {
		return nil, ErrUnparseable
	}

	normalized, err := normalizeCanvas(raw, ImageWidth, ImageHeight)
	if err != nil {
		r.log.Warn("Could not normalize rendered image, keeping raw output", "error", err)
		return raw, nil
	}
	return normalized, nil
}
