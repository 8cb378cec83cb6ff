package system

import (
	"image"
	"sync"
)

// FramePool recycles *image.RGBA frame buffers between render iterations to
// keep a minutes-long export from churning the GC at 30 allocations per
// second of output.
type FramePool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

var globalFramePool = &FramePool{
	pools: make(map[string]*sync.Pool),
}

// GetFrame returns a frame buffer of the given geometry from the pool,
// allocating when none is available.
func GetFrame(rect image.Rectangle) *image.RGBA {
	return globalFramePool.Get(rect)
}

// PutFrame returns a frame buffer to the pool for reuse.
func PutFrame(img *image.RGBA) {
	globalFramePool.Put(img)
}

func (p *FramePool) Get(rect image.Rectangle) *image.RGBA {
	key := rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
