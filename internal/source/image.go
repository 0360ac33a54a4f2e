package source

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// ImageSource - одно декодированное изображение как источник из одной страницы.
type ImageSource struct {
	img image.Image
}

func NewImageSource(data []byte) (*ImageSource, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &ImageSource{img: img}, nil
}

func (s *ImageSource) PageCount() int {
	return 1
}

func (s *ImageSource) PageSize(index int) (float64, float64, error) {
	if index != 0 {
		return 0, 0, fmt.Errorf("page %d out of range", index)
	}
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy()), nil
}

func (s *ImageSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index != 0 {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	return s.img, nil
}

func (s *ImageSource) Close() error {
	return nil
}

// Open выбирает источник по содержимому data.
func Open(data []byte) (Source, error) {
	if isPDF(data) {
		return NewFitzPDFSourceFromBytes(data)
	}
	return NewImageSource(data)
}
