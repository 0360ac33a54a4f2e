package system

import (
	"image"
	"sync"
)

// ImagePool переиспользует холсты image.RGBA одного размера между экспортами,
// чтобы пакетный прогон не выделял новый буфер 800x480 на каждую сцену.
type ImagePool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

var globalPool = NewImagePool()

// GetImage берет очищенный холст нужного размера из общего пула.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage возвращает холст в общий пул.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) pool(rect image.Rectangle, create bool) *sync.Pool {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()
	if exists || !create {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double check
	if pool, exists = p.pools[rect]; !exists {
		pool = &sync.Pool{
			New: func() any {
				return image.NewRGBA(rect)
			},
		}
		p.pools[rect] = pool
	}
	return pool
}

// Get возвращает полностью прозрачный холст с границами rect.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	img := p.pool(rect, true).Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// Put возвращает img в пул. Холсты размера, который пул не выдавал,
// просто отбрасываются.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	if pool := p.pool(img.Rect, false); pool != nil {
		pool.Put(img)
	}
}
