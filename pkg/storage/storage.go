// Package storage reads source frames and writes rendered frame files.
package storage

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	cfg "github.com/1F47E/go-trackreel/pkg/config"
	"github.com/1F47E/go-trackreel/pkg/render"
)

// Extensions are tried in this order when looking up a source frame.
var Extensions = []string{".png", ".jpg"}

// MissingImageError means no file exists for a frame under any extension.
type MissingImageError struct {
	Base string
}

func (e *MissingImageError) Error() string {
	return fmt.Sprintf("image file not found for %s.png/.jpg", e.Base)
}

// FrameName is the zero padded name of frame t without extension.
func FrameName(t int) string {
	return fmt.Sprintf(cfg.FrameNameFormat, t)
}

// FindFrame returns the path of frame t of a sequence under root.
func FindFrame(root, seqID string, t int) (string, error) {
	base := filepath.Join(root, seqID, FrameName(t))
	for _, ext := range Extensions {
		p := base + ext
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", &MissingImageError{Base: base}
}

// LoadFrame decodes a png or jpeg into a normalized float buffer.
func LoadFrame(path string) (*render.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return render.FromImage(img), nil
}

func CreateFramesDir(outRoot, seqID string) (string, error) {
	dir := filepath.Join(outRoot, seqID)
	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return dir, fmt.Errorf("Error creating frames dir: %w", err)
	}
	return dir, nil
}

// SaveFrame writes img as <dir>/<%06d>.jpg and returns the path.
func SaveFrame(dir string, t int, img *render.Image) (string, error) {
	filePath := filepath.Join(dir, FrameName(t)+cfg.FrameExt)
	tmp := filePath + ".tmp"
	imgFile, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("Cannot create file: %w", err)
	}
	err = jpeg.Encode(imgFile, img.NRGBA(), &jpeg.Options{Quality: cfg.JPEGQuality})
	if cerr := imgFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("Cannot encode to file %s: %w", filePath, err)
	}
	// rename so the encoder never sees a half written frame
	if err := os.Rename(tmp, filePath); err != nil {
		return "", err
	}
	return filePath, nil
}

// ScanFrames lists the rendered frame numbers in dir, sorted.
func ScanFrames(dir string) ([]int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	frames := make([]int, 0, len(files))
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, cfg.FrameExt) {
			continue
		}
		stem := strings.TrimSuffix(name, cfg.FrameExt)
		if len(stem) != cfg.FrameNameDigits {
			continue
		}
		n, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}
		frames = append(frames, n)
	}
	sort.Ints(frames)
	return frames, nil
}
