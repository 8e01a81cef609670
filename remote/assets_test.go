package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eyedentify/sketchpad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assetList = `[
	{"id":"e1","name":"Almond eyes","type":"eyes","category":"eyes","cloudinary_url":"https://cdn/e1.png","tags":["almond"],"usage_count":7},
	{"_id":"n1","name":"Roman nose","type":"","category":"nose","cloudinary_url":"https://cdn/n1.png"}
]`

func TestListAssets_MapsFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assets/", r.URL.Path)
		_, _ = w.Write([]byte(assetList))
	}))
	defer server.Close()

	ac := NewAssetClient(New(server.URL, Options{}))
	assets, err := ac.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.Equal(t, sketchpad.FeatureAsset{
		ID:       "e1",
		Name:     "Almond eyes",
		Category: sketchpad.CategoryEyes,
		Path:     "https://cdn/e1.png",
		Tags:     []string{"almond"},
	}, assets[0])
	assert.Equal(t, "n1", assets[1].ID)
	assert.Equal(t, sketchpad.CategoryNose, assets[1].Category)
}

func TestList_ByType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eyes", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(assetList))
	}))
	defer server.Close()

	ac := NewAssetClient(New(server.URL, Options{}))
	recs, err := ac.List(context.Background(), sketchpad.CategoryEyes)
	require.NoError(t, err)
	assert.Equal(t, 7, recs[0].UsageCount)
}

func TestUploadAsset(t *testing.T) {
	pngData := encodeTestPNG(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assets/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "Wide brow", r.FormValue("name"))
		assert.Equal(t, "eyebrows", r.FormValue("type"))
		assert.Equal(t, `["thick"]`, r.FormValue("tags"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "brow.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, pngData, data)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "b9", "name": "Wide brow", "type": "eyebrows", "category": "eyebrows",
			"cloudinary_url": "https://cdn/b9.png", "tags": []string{"thick"},
		})
	}))
	defer server.Close()

	ac := NewAssetClient(New(server.URL, Options{}))
	a, err := ac.UploadAsset(context.Background(), sketchpad.AssetUpload{
		Name:     "Wide brow",
		Category: sketchpad.CategoryEyebrows,
		Tags:     []string{"thick"},
		Filename: "brow.png",
		Data:     pngData,
	})
	require.NoError(t, err)
	assert.Equal(t, "b9", a.ID)
	assert.Equal(t, "https://cdn/b9.png", a.Path)
}

func TestAssetMutations(t *testing.T) {
	type call struct{ method, path, body string }
	var calls []call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	ac := NewAssetClient(New(server.URL, Options{}))
	ctx := context.Background()
	require.NoError(t, ac.RenameAsset(ctx, "e1", "Narrow eyes"))
	require.NoError(t, ac.RecordUsage(ctx, "e1"))
	require.NoError(t, ac.DeleteAsset(ctx, "e1"))

	require.Len(t, calls, 3)
	assert.Equal(t, call{http.MethodPut, "/assets/e1/name", `{"name":"Narrow eyes"}`}, calls[0])
	assert.Equal(t, call{http.MethodPut, "/assets/e1/usage", ""}, calls[1])
	assert.Equal(t, call{http.MethodDelete, "/assets/e1", ""}, calls[2])
}

func TestCatalogOverAssetClient(t *testing.T) {
	var lists int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			lists++
			_, _ = w.Write([]byte(assetList))
			return
		}
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	cat := sketchpad.NewCatalog(NewAssetClient(New(server.URL, Options{})), 0)
	ctx := context.Background()

	eyes, err := cat.ByCategory(ctx, sketchpad.CategoryEyes)
	require.NoError(t, err)
	require.Len(t, eyes, 1)
	_, err = cat.Assets(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, lists)

	require.NoError(t, cat.RecordUsage(ctx, "e1"))
	_, err = cat.Assets(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, lists)
}
