package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastDetector finds content through Sobel edges, dilated so that the
// strokes of one drawing merge into a single region.
type ContrastDetector struct {
	MinBlockArea  int     // in thumbnail pixels
	EdgeThreshold float64 // gradient magnitude
	// MaxEdge bounds the thumbnail the analysis runs on.
	MaxEdge int
	// Padding is added around the content, in source pixels.
	Padding int
	// MinTrim is the smallest share of the page that must be cut away for
	// a crop to be worth it.
	MinTrim float64
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  500,
		EdgeThreshold: 30.0,
		MaxEdge:       400,
		Padding:       4,
		MinTrim:       0.05,
	}
}

// Blocks returns the content regions of img in img coordinates.
func (d *ContrastDetector) Blocks(img image.Image) []image.Rectangle {
	b := img.Bounds()
	if b.Empty() {
		return nil
	}
	gray := thumbnail(img, d.MaxEdge)
	edges := sobel(gray, d.EdgeThreshold)
	regions := components(dilate(edges, 5, 2))

	sx := float64(b.Dx()) / float64(gray.Rect.Dx())
	sy := float64(b.Dy()) / float64(gray.Rect.Dy())
	var blocks []image.Rectangle
	for _, r := range regions {
		if r.Dx()*r.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, image.Rect(
			b.Min.X+int(math.Floor(float64(r.Min.X)*sx)),
			b.Min.Y+int(math.Floor(float64(r.Min.Y)*sy)),
			b.Min.X+int(math.Ceil(float64(r.Max.X)*sx)),
			b.Min.Y+int(math.Ceil(float64(r.Max.Y)*sy)),
		).Intersect(b))
	}
	return blocks
}

// Bounds returns the union of the content blocks, padded. It reports false
// for blank images and when the crop would remove less than MinTrim of
// the area.
func (d *ContrastDetector) Bounds(img image.Image) (image.Rectangle, bool) {
	blocks := d.Blocks(img)
	if len(blocks) == 0 {
		return image.Rectangle{}, false
	}
	union := blocks[0]
	for _, r := range blocks[1:] {
		union = union.Union(r)
	}
	b := img.Bounds()
	union = union.Inset(-d.Padding).Intersect(b)

	full := float64(b.Dx() * b.Dy())
	kept := float64(union.Dx() * union.Dy())
	if union.Empty() || 1-kept/full < d.MinTrim {
		return image.Rectangle{}, false
	}
	return union, true
}

// thumbnail returns a grayscale copy of img whose longer side is at most
// maxEdge, with bounds starting at the origin.
func thumbnail(img image.Image, maxEdge int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if long := max(w, h); maxEdge > 0 && long > maxEdge {
		w = max(1, w*maxEdge/long)
		h = max(1, h*maxEdge/long)
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Rect, img, b, draw.Src, nil)
	return gray
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// sobel marks pixels whose gradient magnitude exceeds threshold.
func sobel(gray *image.Gray, threshold float64) *image.Gray {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	edges := image.NewGray(gray.Rect)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := float64(gray.Pix[(y+ky)*gray.Stride+x+kx])
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			if math.Hypot(gx, gy) > threshold {
				edges.Pix[y*edges.Stride+x] = 255
			}
		}
	}
	return edges
}

// dilate grows marked pixels by a square kernel, iterations times.
func dilate(img *image.Gray, kernelSize, iterations int) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	half := kernelSize / 2
	result := img
	for iter := 0; iter < iterations; iter++ {
		next := image.NewGray(img.Rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if result.Pix[y*result.Stride+x] == 0 {
					continue
				}
				for ky := max(0, y-half); ky <= min(h-1, y+half); ky++ {
					row := next.Pix[ky*next.Stride:]
					for kx := max(0, x-half); kx <= min(w-1, x+half); kx++ {
						row[kx] = 255
					}
				}
			}
		}
		result = next
	}
	return result
}

// components returns the bounding rectangles of the connected marked
// regions.
func components(img *image.Gray) []image.Rectangle {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	visited := make([]bool, w*h)
	var rects []image.Rectangle
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || img.Pix[y*img.Stride+x] <= 128 {
				continue
			}
			rects = append(rects, fill(img, visited, x, y))
		}
	}
	return rects
}

func fill(img *image.Gray, visited []bool, startX, startY int) image.Rectangle {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	r := image.Rect(startX, startY, startX+1, startY+1)
	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		if visited[p.Y*w+p.X] || img.Pix[p.Y*img.Stride+p.X] <= 128 {
			continue
		}
		visited[p.Y*w+p.X] = true
		r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}
	return r
}
