// Package media stores uploaded files and probes their metadata
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ThumbnailWidth is the width of the WebP preview written next to raster uploads.
const ThumbnailWidth = 300

// ErrEmptyFile is returned for zero-length uploads.
var ErrEmptyFile = errors.New("empty file")

// Probe is what an upload tells us about itself.
type Probe struct {
	MimeType string
	Size     int64
	Width    int
	Height   int
	Checksum string
}

// IsImage reports whether the probe found raster dimensions.
func (p *Probe) IsImage() bool {
	return p.Width > 0 && p.Height > 0
}

// FileProcessor handles file storage under a base directory
type FileProcessor struct {
	basePath string
}

// NewFileProcessor creates a new FileProcessor instance
func NewFileProcessor(basePath string) *FileProcessor {
	return &FileProcessor{basePath: basePath}
}

// ProbeFile detects the mime type, size, checksum and, for images, the
// pixel dimensions of data. Undecodable images are reported without
// dimensions rather than failing.
func ProbeFile(name string, data []byte) (*Probe, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	sum := sha256.Sum256(data)
	p := &Probe{
		MimeType: detectMimeType(name, data),
		Size:     int64(len(data)),
		Checksum: hex.EncodeToString(sum[:]),
	}

	switch {
	case p.MimeType == "image/webp":
		if cfg, err := webp.DecodeConfig(bytes.NewReader(data)); err == nil {
			p.Width, p.Height = cfg.Width, cfg.Height
		}
	case p.MimeType == "image/svg+xml":
	case strings.HasPrefix(p.MimeType, "image/"):
		if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
			b := img.Bounds()
			p.Width, p.Height = b.Dx(), b.Dy()
		}
	}
	return p, nil
}

func detectMimeType(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	}
	mime := http.DetectContentType(data)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// Save writes data as files/{id}{ext} and, for decodable raster images, a
// WebP thumbnail under thumbs/. It returns the path of the stored file
// relative to the base directory.
func (p *FileProcessor) Save(id, name string, data []byte, probe *Probe) (string, error) {
	filesDir := filepath.Join(p.basePath, "files")
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filename := id + strings.ToLower(filepath.Ext(name))
	fullPath := filepath.Join(filesDir, filename)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if probe != nil && probe.IsImage() && probe.MimeType != "image/svg+xml" {
		if err := p.writeThumbnail(id, data, probe); err != nil {
			os.Remove(fullPath)
			return "", err
		}
	}
	return filepath.ToSlash(filepath.Join("files", filename)), nil
}

func (p *FileProcessor) writeThumbnail(id string, data []byte, probe *Probe) error {
	var (
		img image.Image
		err error
	)
	if probe.MimeType == "image/webp" {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, err = imaging.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	thumbsDir := filepath.Join(p.basePath, "thumbs")
	if err := os.MkdirAll(thumbsDir, 0755); err != nil {
		return fmt.Errorf("failed to create thumbs directory: %w", err)
	}

	if probe.Width > ThumbnailWidth {
		img = imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	}
	thumbPath := filepath.Join(thumbsDir, fmt.Sprintf("%s_%dpx.webp", id, ThumbnailWidth))
	if err := webp.Save(thumbPath, img, &webp.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to save WebP thumbnail: %w", err)
	}
	return nil
}

// Delete removes the stored file and its thumbnail. Missing files are ignored.
func (p *FileProcessor) Delete(id, name string) error {
	paths := []string{
		filepath.Join(p.basePath, "files", id+strings.ToLower(filepath.Ext(name))),
		filepath.Join(p.basePath, "thumbs", fmt.Sprintf("%s_%dpx.webp", id, ThumbnailWidth)),
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}
