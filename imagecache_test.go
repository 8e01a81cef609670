package sketchpad

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
)

type countingSource struct {
	calls map[string]int
	fail  map[string]bool
}

func (s *countingSource) Image(_ context.Context, ref string) (image.Image, error) {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[ref]++
	if s.fail[ref] {
		return nil, errors.New("not found")
	}
	return solidImage(3, 3, color.NRGBA{0, 0, 255, 255}), nil
}

func TestImageCacheLoadsOnce(t *testing.T) {
	src := &countingSource{}
	exec := &manualExecutor{}
	c := NewImageCache(src, exec, zerolog.Nop())
	var loaded []string
	c.OnLoad(func(ref string) { loaded = append(loaded, ref) })

	if _, st := c.Lookup("a.png"); st != ImageLoading {
		t.Errorf("first Lookup status = %v, want loading", st)
	}
	if _, st := c.Lookup("a.png"); st != ImageLoading {
		t.Errorf("second Lookup status = %v, want loading", st)
	}
	if len(exec.tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(exec.tasks))
	}
	exec.run()

	img, st := c.Lookup("a.png")
	if st != ImageReady || img == nil {
		t.Fatalf("Lookup = %v, %v; want ready", img, st)
	}
	if src.calls["a.png"] != 1 {
		t.Errorf("source calls = %d, want 1", src.calls["a.png"])
	}
	if len(loaded) != 1 || loaded[0] != "a.png" {
		t.Errorf("onLoad = %v, want [a.png]", loaded)
	}
}

func TestImageCacheRemembersFailure(t *testing.T) {
	src := &countingSource{fail: map[string]bool{"bad.png": true}}
	exec := &manualExecutor{}
	c := NewImageCache(src, exec, zerolog.Nop())

	c.Lookup("bad.png")
	exec.run()
	if st := c.Status("bad.png"); st != ImageFailed {
		t.Fatalf("Status = %v, want failed", st)
	}
	c.Lookup("bad.png")
	if len(exec.tasks) != 0 {
		t.Error("failed image should not be refetched until invalidated")
	}
	if _, err := c.Image(context.Background(), "bad.png"); err == nil {
		t.Error("Image should return the remembered error")
	}

	c.Invalidate("bad.png")
	if st := c.Status("bad.png"); st != ImageMissing {
		t.Errorf("Status after Invalidate = %v, want missing", st)
	}
	c.Lookup("bad.png")
	exec.run()
	if src.calls["bad.png"] != 2 {
		t.Errorf("calls = %d, want 2", src.calls["bad.png"])
	}
}

func TestImageCacheDropsLoadAfterInvalidate(t *testing.T) {
	src := &countingSource{}
	exec := &manualExecutor{}
	c := NewImageCache(src, exec, zerolog.Nop())
	called := false
	c.OnLoad(func(string) { called = true })

	c.Lookup("a.png")
	c.InvalidateAll()
	exec.run()
	if c.Len() != 0 || called {
		t.Errorf("Len = %d, onLoad called = %v; want stale load dropped", c.Len(), called)
	}
}

func TestImageCacheDetached(t *testing.T) {
	src := &countingSource{}
	c := NewImageCache(src, InlineExecutor{}, zerolog.Nop())
	c.Lookup("a.png")

	d := c.Detached([]string{"a.png", "b.png"})
	ctx := context.Background()
	if _, err := d.Image(ctx, "a.png"); err != nil {
		t.Fatal(err)
	}
	if src.calls["a.png"] != 1 {
		t.Errorf("a.png calls = %d, want served from the snapshot", src.calls["a.png"])
	}
	if _, err := d.Image(ctx, "b.png"); err != nil {
		t.Fatal(err)
	}
	if src.calls["b.png"] != 1 {
		t.Errorf("b.png calls = %d, want a fallback fetch", src.calls["b.png"])
	}
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, solidImage(5, 4, color.NRGBA{1, 2, 3, 255}))
	img, err := DecodeImage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 4 {
		t.Errorf("Bounds = %v", b)
	}
	if _, err := DecodeImage(bytes.NewReader([]byte("nope"))); err == nil {
		t.Error("expected decode error")
	}
}
