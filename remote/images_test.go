package remote

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImage_FetchesURL(t *testing.T) {
	data := encodeTestPNG(t)
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	ic := NewImageClient(New(server.URL, Options{Token: "tok"}))
	img, err := ic.Image(context.Background(), server.URL+"/assets/e1.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	assert.Equal(t, "Bearer tok", auth)
}

func TestImage_NoTokenForForeignHost(t *testing.T) {
	data := encodeTestPNG(t)
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	ic := NewImageClient(New("http://api.example", Options{Token: "tok"}))
	_, err := ic.Image(context.Background(), server.URL+"/e1.png")
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestImage_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	ic := NewImageClient(New(server.URL, Options{}))
	_, err := ic.Image(context.Background(), server.URL+"/missing.png")
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestImage_LocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nose.png")
	require.NoError(t, os.WriteFile(path, encodeTestPNG(t), 0o644))

	ic := NewImageClient(New("", Options{}))
	img, err := ic.Image(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = ic.Image(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestImage_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	ic := NewImageClient(New("", Options{}))
	_, err := ic.Image(context.Background(), path)
	assert.Error(t, err)
}
