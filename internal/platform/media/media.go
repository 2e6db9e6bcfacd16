package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ambralab/tpdb-backend/internal/platform/envutil"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
)

const (
	moleculesDir = "molecules"
	uploadsDir   = "excel_uploads"
)

// Store is the local media layout: molecule images under molecules/,
// uploaded workbooks under excel_uploads/, both below MEDIA_ROOT.
type Store struct {
	root string
	log  *logger.Logger
}

func NewStore(log *logger.Logger) *Store {
	return &Store{
		root: envutil.Str("MEDIA_ROOT", "media"),
		log:  log.With("service", "MediaStore"),
	}
}

func (s *Store) Root() string { return s.root }

func (s *Store) EnsureDirs() error {
	for _, dir := range []string{moleculesDir, uploadsDir} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("ensure media dir %s: %w", dir, err)
		}
	}
	return nil
}

// SaveMoleculeImage writes the image and returns the relative path stored on
// the compound record.
func (s *Store) SaveMoleculeImage(compoundID uuid.UUID, data []byte) (string, error) {
	if err := s.EnsureDirs(); err != nil {
		return "", err
	}
	rel := filepath.Join(moleculesDir, fmt.Sprintf("molecule_%s.png", compoundID))
	if err := os.WriteFile(filepath.Join(s.root, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("write molecule image: %w", err)
	}
	return rel, nil
}

// SaveUpload stores an uploaded workbook under a unique name and returns the
// absolute path recorded on the upload job.
func (s *Store) SaveUpload(fileName string, r io.Reader) (string, error) {
	if err := s.EnsureDirs(); err != nil {
		return "", err
	}
	safe := filepath.Base(fileName)
	path := filepath.Join(s.root, uploadsDir, fmt.Sprintf("%s_%s", uuid.New(), safe))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("save upload file: %w", err)
	}
	return path, nil
}

func (s *Store) Abs(rel string) string {
	return filepath.Join(s.root, rel)
}

// CleanupOrphanedMoleculeImages removes image files whose compound no longer
// exists. keep holds the live compound IDs.
func (s *Store) CleanupOrphanedMoleculeImages(keep map[uuid.UUID]bool) error {
	dir := filepath.Join(s.root, moleculesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "molecule_") || !strings.HasSuffix(name, ".png") {
			continue
		}
		idStr := strings.TrimSuffix(strings.TrimPrefix(name, "molecule_"), ".png")
		id, err := uuid.Parse(idStr)
		if err != nil || keep[id] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			s.log.Warn("Could not remove orphaned molecule image", "file", name, "error", err)
		}
	}
	return nil
}
