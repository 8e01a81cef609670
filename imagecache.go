package sketchpad

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSource resolves an image reference (URL or path) to a decoded image.
type ImageSource interface {
	Image(ctx context.Context, ref string) (image.Image, error)
}

// ImageSourceFunc adapts a function to ImageSource.
type ImageSourceFunc func(ctx context.Context, ref string) (image.Image, error)

// Image calls f.
func (f ImageSourceFunc) Image(ctx context.Context, ref string) (image.Image, error) {
	return f(ctx, ref)
}

// DecodeImage decodes PNG, JPEG, GIF, WebP, BMP or TIFF data.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// ImageStatus is the cache state of one image reference.
type ImageStatus uint8

const (
	ImageMissing ImageStatus = iota
	ImageLoading
	ImageReady
	ImageFailed
)

type cachedImage struct {
	status ImageStatus
	img    image.Image
	err    error
	gpu    *ebiten.Image // created lazily on the draw path
}

// ImageCache holds decoded feature images keyed by reference so a redraw
// never decodes. A miss starts one asynchronous load; its completion calls
// onLoad exactly once, which the editor uses to schedule a redraw. Failed
// loads are remembered and drawn as placeholders until invalidated.
type ImageCache struct {
	source  ImageSource
	exec    Executor
	entries map[string]*cachedImage
	onLoad  func(ref string)
	log     zerolog.Logger
}

// NewImageCache creates a cache loading through source on exec.
func NewImageCache(source ImageSource, exec Executor, log zerolog.Logger) *ImageCache {
	return &ImageCache{
		source:  source,
		exec:    exec,
		entries: make(map[string]*cachedImage),
		log:     log,
	}
}

// OnLoad sets the callback run on the loop after each load completes,
// successfully or not.
func (c *ImageCache) OnLoad(fn func(ref string)) {
	c.onLoad = fn
}

// Status returns the cache state of ref without starting a load.
func (c *ImageCache) Status(ref string) ImageStatus {
	if e, ok := c.entries[ref]; ok {
		return e.status
	}
	return ImageMissing
}

// Lookup returns the decoded image for ref if ready. On a miss it starts a
// load and returns ImageLoading.
func (c *ImageCache) Lookup(ref string) (image.Image, ImageStatus) {
	e, ok := c.entries[ref]
	if !ok {
		c.load(ref)
		return nil, ImageLoading
	}
	return e.img, e.status
}

func (c *ImageCache) load(ref string) {
	e := &cachedImage{status: ImageLoading}
	c.entries[ref] = e
	c.exec.Go(func(ctx context.Context) func() {
		img, err := c.source.Image(ctx, ref)
		return func() {
			if c.entries[ref] != e {
				// Invalidated while loading.
				return
			}
			c.store(ref, e, img, err)
			if c.onLoad != nil {
				c.onLoad(ref)
			}
		}
	})
}

func (c *ImageCache) store(ref string, e *cachedImage, img image.Image, err error) {
	if err != nil {
		e.status = ImageFailed
		e.err = err
		c.log.Warn().Err(err).Str("ref", ref).Msg("feature image failed to load")
		return
	}
	e.status = ImageReady
	e.img = img
}

// Image implements ImageSource for use on the loop. Ready entries come from
// the cache, known failures return their error, and anything else is read
// synchronously from the underlying source.
func (c *ImageCache) Image(ctx context.Context, ref string) (image.Image, error) {
	if e, ok := c.entries[ref]; ok {
		switch e.status {
		case ImageReady:
			return e.img, nil
		case ImageFailed:
			return nil, e.err
		}
	}
	return c.source.Image(ctx, ref)
}

// Detached returns an ImageSource holding the currently ready images for
// refs and falling back to the underlying source for the rest. Unlike the
// cache itself it is safe to use from an executor task.
func (c *ImageCache) Detached(refs []string) ImageSource {
	ready := make(map[string]image.Image, len(refs))
	for _, ref := range refs {
		if e, ok := c.entries[ref]; ok && e.status == ImageReady {
			ready[ref] = e.img
		}
	}
	return detachedSource{ready: ready, fallback: c.source}
}

type detachedSource struct {
	ready    map[string]image.Image
	fallback ImageSource
}

func (d detachedSource) Image(ctx context.Context, ref string) (image.Image, error) {
	if img, ok := d.ready[ref]; ok {
		return img, nil
	}
	return d.fallback.Image(ctx, ref)
}

// gpuImage returns the ebiten image for a ready entry, uploading it once.
func (c *ImageCache) gpuImage(ref string) *ebiten.Image {
	e, ok := c.entries[ref]
	if !ok || e.status != ImageReady {
		return nil
	}
	if e.gpu == nil {
		e.gpu = ebiten.NewImageFromImage(e.img)
	}
	return e.gpu
}

// Invalidate drops ref so the next lookup reloads it.
func (c *ImageCache) Invalidate(ref string) {
	if e, ok := c.entries[ref]; ok {
		if e.gpu != nil {
			e.gpu.Deallocate()
		}
		delete(c.entries, ref)
	}
}

// InvalidateAll empties the cache.
func (c *ImageCache) InvalidateAll() {
	for ref := range c.entries {
		c.Invalidate(ref)
	}
}

// Len returns the number of cached references, including loading and failed.
func (c *ImageCache) Len() int {
	return len(c.entries)
}
