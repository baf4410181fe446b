package video

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

var ErrNoSnapshotName = errors.New("no free snapshot name")

// EncodePNG writes img scaled by an integer factor with nearest-neighbor
// sampling, which keeps pixel edges sharp.
func EncodePNG(w io.Writer, img image.Image, scale int) error {
	if scale > 1 {
		b := img.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// NextSnapshotName returns the first unused dir/<prefix>NNNN.png.
func NextSnapshotName(dir, prefix string) (string, error) {
	for i := 0; i < 10000; i++ {
		name := filepath.Join(dir, fmt.Sprintf("%s%04d.png", prefix, i))
		if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
			return name, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", ErrNoSnapshotName
}

// SaveSnapshot writes the current canvas to the next free name in dir.
func SaveSnapshot(p *Pipeline, dir string, scale int) (string, error) {
	name, err := NextSnapshotName(dir, "snap")
	if err != nil {
		return "", err
	}
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := EncodePNG(f, p.Snapshot(), scale); err != nil {
		f.Close()
		return "", err
	}
	return name, f.Close()
}
