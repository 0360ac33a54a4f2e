// Package source загружает изображения для фона сцены. Фоном может быть
// PNG/JPEG или PDF с упражнением, от которого берется первая страница.
package source

import (
	"bytes"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Source - постраничный источник изображений.
type Source interface {
	PageCount() int
	PageSize(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// FitzPDFSource рендерит страницы PDF через MuPDF.
type FitzPDFSource struct {
	doc *fitz.Document
}

// NewFitzPDFSourceFromBytes открывает PDF из памяти: скачанный по HTTP
// или пришедший в data URI.
func NewFitzPDFSourceFromBytes(data []byte) (*FitzPDFSource, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) PageSize(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	return f.doc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
