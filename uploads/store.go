// Package uploads stores uploaded image files on disk together with a tiny
// JPEG placeholder used while the full image loads.
package uploads

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	uuid "github.com/twinj/uuid"

	"tagframe/utils"
)

const lqipQuality = 60

// Saved describes a stored upload. Dimensions and placeholder are nil when
// the file could not be decoded as an image.
type Saved struct {
	Path     string
	LqipPath *string
	Width    *int
	Height   *int
}

type Store struct {
	dir      string
	lqipSize int
	// maxPixels bounds width*height of images decoded for a placeholder.
	maxPixels int64
}

// NewStore keeps files under dir. Images larger than maxPixels are stored
// without a placeholder; a non-positive maxPixels disables the check.
func NewStore(dir string, lqipSize int, maxPixels int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return &Store{dir: dir, lqipSize: lqipSize, maxPixels: maxPixels}, nil
}

// Save writes src under a generated name that keeps the extension of
// fileName, then reads its dimensions and writes the placeholder.
func (s *Store) Save(fileName string, src io.Reader) (*Saved, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fileName, err)
	}

	id := uuid.NewV4().String()
	ext := strings.ToLower(filepath.Ext(fileName))
	path := filepath.Join(s.dir, id+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("store upload %s: %w", fileName, err)
	}
	saved := &Saved{Path: path}

	width, height, format, err := utils.ImageDimensions(bytes.NewReader(data))
	if err != nil {
		log.Warn(fmt.Sprintf("Cannot read dimensions of %s: %s", fileName, err))
		return saved, nil
	}
	saved.Width, saved.Height = &width, &height
	log.Debug(fmt.Sprintf("Stored %s (%s, %dx%d) as %s", fileName, format, width, height, path))

	if s.maxPixels > 0 && int64(width)*int64(height) > s.maxPixels {
		log.Warn(fmt.Sprintf("Image %s has %dx%d pixels, above the limit of %d, no placeholder", fileName, width, height, s.maxPixels))
		return saved, nil
	}

	lqip, err := s.placeholder(id, data)
	if err != nil {
		log.Warn(fmt.Sprintf("Cannot create placeholder for %s: %s", fileName, err))
		return saved, nil
	}
	saved.LqipPath = &lqip
	return saved, nil
}

func (s *Store) placeholder(id string, data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	buf, err := utils.ImageToJpgBuffer(utils.Placeholder(img, s.lqipSize), &jpeg.Options{Quality: lqipQuality})
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, id+"_lqip.jpg")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes stored files, logging the ones that cannot be removed.
func (s *Store) Remove(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn(fmt.Sprintf("Cannot remove %s: %s", path, err))
		}
	}
}
