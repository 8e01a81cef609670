package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"

	"github.com/eyedentify/sketchpad"
)

// AssetClient is the asset catalog service. It implements
// sketchpad.AssetService.
type AssetClient struct {
	*Client
}

var _ sketchpad.AssetService = (*AssetClient)(nil)

// NewAssetClient creates an asset catalog client over c.
func NewAssetClient(c *Client) *AssetClient {
	return &AssetClient{Client: c}
}

// AssetRecord is a catalog entry as the service reports it.
type AssetRecord struct {
	sketchpad.FeatureAsset
	UsageCount int
}

type assetBody struct {
	ID          string   `json:"id"`
	MongoID     string   `json:"_id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Category    string   `json:"category"`
	URL         string   `json:"cloudinary_url"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	UsageCount  int      `json:"usage_count"`
}

func (b assetBody) record() AssetRecord {
	id := b.ID
	if id == "" {
		id = b.MongoID
	}
	cat := b.Type
	if cat == "" {
		cat = b.Category
	}
	return AssetRecord{
		FeatureAsset: sketchpad.FeatureAsset{
			ID:          id,
			Name:        b.Name,
			Category:    sketchpad.Category(cat),
			Path:        b.URL,
			Tags:        b.Tags,
			Description: b.Description,
		},
		UsageCount: b.UsageCount,
	}
}

// List returns the catalog, optionally restricted to one category.
func (a *AssetClient) List(ctx context.Context, cat sketchpad.Category) ([]AssetRecord, error) {
	path := "/assets/"
	if cat != "" {
		path += "?" + url.Values{"type": {string(cat)}}.Encode()
	}
	var body []assetBody
	if err := a.doJSON(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	out := make([]AssetRecord, len(body))
	for i, b := range body {
		out[i] = b.record()
	}
	return out, nil
}

// ListAssets returns every asset.
func (a *AssetClient) ListAssets(ctx context.Context) ([]sketchpad.FeatureAsset, error) {
	recs, err := a.List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]sketchpad.FeatureAsset, len(recs))
	for i, r := range recs {
		out[i] = r.FeatureAsset
	}
	return out, nil
}

// UploadAsset adds an image to the catalog.
func (a *AssetClient) UploadAsset(ctx context.Context, up sketchpad.AssetUpload) (sketchpad.FeatureAsset, error) {
	tags := up.Tags
	if tags == nil {
		tags = []string{}
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return sketchpad.FeatureAsset{}, fmt.Errorf("encode tags: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("name", up.Name)
	_ = w.WriteField("type", string(up.Category))
	if up.Description != "" {
		_ = w.WriteField("description", up.Description)
	}
	_ = w.WriteField("tags", string(tagJSON))

	filename := up.Filename
	if filename == "" {
		filename = up.Name + ".png"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", http.DetectContentType(up.Data))
	part, err := w.CreatePart(h)
	if err != nil {
		return sketchpad.FeatureAsset{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return sketchpad.FeatureAsset{}, fmt.Errorf("failed to write asset data: %w", err)
	}
	if err := w.Close(); err != nil {
		return sketchpad.FeatureAsset{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := a.newRequest(ctx, http.MethodPost, "/assets/upload", &buf, w.FormDataContentType())
	if err != nil {
		return sketchpad.FeatureAsset{}, err
	}
	var body assetBody
	if err := a.do(req, &body); err != nil {
		return sketchpad.FeatureAsset{}, err
	}
	return body.record().FeatureAsset, nil
}

// DeleteAsset removes an asset.
func (a *AssetClient) DeleteAsset(ctx context.Context, id string) error {
	return a.doJSON(ctx, http.MethodDelete, "/assets/"+url.PathEscape(id), nil, nil)
}

// RenameAsset changes an asset's display name.
func (a *AssetClient) RenameAsset(ctx context.Context, id, name string) error {
	body := struct {
		Name string `json:"name"`
	}{name}
	return a.doJSON(ctx, http.MethodPut, "/assets/"+url.PathEscape(id)+"/name", body, nil)
}

// RecordUsage increments an asset's usage counter.
func (a *AssetClient) RecordUsage(ctx context.Context, id string) error {
	return a.doJSON(ctx, http.MethodPut, "/assets/"+url.PathEscape(id)+"/usage", nil, nil)
}
