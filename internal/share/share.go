// Package share turns the remote raster of a saved scene into something a
// coach can hand out, such as a QR code.
package share

import (
	"errors"
	"fmt"
	"os"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/tactiboard/internal/scene"
)

// DefaultSize is the edge of the generated QR image in pixels.
const DefaultSize = 256

var ErrNoRemoteRaster = errors.New("scene has no remote raster")

// Link returns the remote raster reference of doc. An inline-only raster
// (the upload degraded) has nothing to share.
func Link(doc scene.Document) (string, error) {
	if doc.RenderedImageURL == "" {
		return "", ErrNoRemoteRaster
	}
	return doc.RenderedImageURL, nil
}

// QRCode encodes url as a PNG QR code of size×size pixels.
func QRCode(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, ErrNoRemoteRaster
	}
	if size <= 0 {
		size = DefaultSize
	}
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	return qr.PNG(size)
}

// WriteQRCode writes the QR code for the scene's remote raster to path.
func WriteQRCode(doc scene.Document, size int, path string) (string, error) {
	url, err := Link(doc)
	if err != nil {
		return "", err
	}
	data, err := QRCode(url, size)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return url, nil
}
