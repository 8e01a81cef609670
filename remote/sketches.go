package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eyedentify/sketchpad"
)

// DefaultDetailTTL is how long a fetched sketch is served from cache.
const DefaultDetailTTL = 60 * time.Second

// SketchClient is the sketch store service. It implements
// sketchpad.RecordStore.
type SketchClient struct {
	*Client
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSketch
}

type cachedSketch struct {
	rec     sketchpad.Record
	fetched time.Time
}

var _ sketchpad.RecordStore = (*SketchClient)(nil)

// NewSketchClient creates a sketch store client over c.
func NewSketchClient(c *Client) *SketchClient {
	return &SketchClient{
		Client: c,
		ttl:    DefaultDetailTTL,
		now:    time.Now,
		cache:  make(map[string]cachedSketch),
	}
}

// SketchSummary is one row of a sketch listing.
type SketchSummary struct {
	ID        string
	Details   sketchpad.SaveDetails
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListQuery filters a sketch listing. Suspect and Officer are
// case-insensitive substring matches.
type ListQuery struct {
	Skip    int
	Limit   int
	Suspect string
	Officer string
}

// SketchPage is one page of a listing.
type SketchPage struct {
	Sketches []SketchSummary
	Total    int
	Skip     int
	Limit    int
}

type saveResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	SketchID string `json:"sketch_id"`
}

type sketchBody struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Suspect     string          `json:"suspect"`
	Eyewitness  string          `json:"eyewitness"`
	Officer     string          `json:"officer"`
	Date        string          `json:"date"`
	Reason      string          `json:"reason"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Status      string          `json:"status"`
	ImageURL    string          `json:"image_url"`
	Cloudinary  string          `json:"cloudinary_url"`
	State       json.RawMessage `json:"sketch_state"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func (b sketchBody) details() sketchpad.SaveDetails {
	d := sketchpad.DefaultSaveDetails()
	d.Name = b.Name
	d.Suspect = b.Suspect
	d.Eyewitness = b.Eyewitness
	d.Officer = b.Officer
	d.Date = b.Date
	d.Reason = b.Reason
	d.Description = b.Description
	if b.Priority != "" {
		d.Priority = sketchpad.Priority(b.Priority)
	}
	if b.Status != "" {
		d.Status = sketchpad.Status(b.Status)
	}
	return d
}

func (b sketchBody) imageURL() string {
	if b.ImageURL != "" {
		return b.ImageURL
	}
	return b.Cloudinary
}

// Create stores a new sketch and returns its id.
func (s *SketchClient) Create(ctx context.Context, details sketchpad.SaveDetails, state sketchpad.SketchState, png []byte) (string, error) {
	if png == nil {
		return "", fmt.Errorf("create sketch %q: image is required", details.Name)
	}
	req, err := s.multipartRequest(ctx, http.MethodPost, "/sketches/save", details, state, png)
	if err != nil {
		return "", err
	}
	var resp saveResponse
	if err := s.do(req, &resp); err != nil {
		return "", fmt.Errorf("create sketch %q: %w", details.Name, err)
	}
	if resp.SketchID == "" {
		return "", fmt.Errorf("create sketch %q: response carried no sketch_id", details.Name)
	}
	return resp.SketchID, nil
}

// Update replaces a sketch's details and state. A nil png leaves the stored
// image unchanged.
func (s *SketchClient) Update(ctx context.Context, id string, details sketchpad.SaveDetails, state sketchpad.SketchState, png []byte) error {
	req, err := s.multipartRequest(ctx, http.MethodPut, "/sketches/"+url.PathEscape(id), details, state, png)
	if err != nil {
		return err
	}
	err = s.do(req, nil)
	s.forget(id)
	if err != nil {
		return fmt.Errorf("update sketch %s: %w", id, err)
	}
	return nil
}

// Get returns a sketch with its full state. Results are cached for the
// detail TTL; force bypasses the cache.
func (s *SketchClient) Get(ctx context.Context, id string, force bool) (sketchpad.Record, error) {
	if !force {
		s.mu.Lock()
		c, ok := s.cache[id]
		s.mu.Unlock()
		if ok && s.now().Sub(c.fetched) < s.ttl {
			return c.rec, nil
		}
	}

	req, err := s.newRequest(ctx, http.MethodGet, "/sketches/"+url.PathEscape(id), nil, "")
	if err != nil {
		return sketchpad.Record{}, err
	}
	var body sketchBody
	if err := s.do(req, &body); err != nil {
		return sketchpad.Record{}, fmt.Errorf("get sketch %s: %w", id, err)
	}
	rec, err := body.record()
	if err != nil {
		return sketchpad.Record{}, fmt.Errorf("get sketch %s: %w", id, err)
	}
	if rec.ID == "" {
		rec.ID = id
	}

	s.mu.Lock()
	s.cache[id] = cachedSketch{rec: rec, fetched: s.now()}
	s.mu.Unlock()
	return rec, nil
}

// List returns one page of sketches, newest first.
func (s *SketchClient) List(ctx context.Context, q ListQuery) (SketchPage, error) {
	v := url.Values{}
	v.Set("skip", strconv.Itoa(q.Skip))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Suspect != "" {
		v.Set("suspect", q.Suspect)
	}
	if q.Officer != "" {
		v.Set("officer", q.Officer)
	}
	req, err := s.newRequest(ctx, http.MethodGet, "/sketches/?"+v.Encode(), nil, "")
	if err != nil {
		return SketchPage{}, err
	}
	var body struct {
		Sketches []sketchBody `json:"sketches"`
		Total    int          `json:"total"`
		Skip     int          `json:"skip"`
		Limit    int          `json:"limit"`
	}
	if err := s.do(req, &body); err != nil {
		return SketchPage{}, fmt.Errorf("list sketches: %w", err)
	}
	page := SketchPage{
		Sketches: make([]SketchSummary, 0, len(body.Sketches)),
		Total:    body.Total,
		Skip:     body.Skip,
		Limit:    body.Limit,
	}
	for _, b := range body.Sketches {
		page.Sketches = append(page.Sketches, SketchSummary{
			ID:        b.ID,
			Details:   b.details(),
			ImageURL:  b.imageURL(),
			CreatedAt: parseTime(b.CreatedAt),
			UpdatedAt: parseTime(b.UpdatedAt),
		})
	}
	return page, nil
}

// Delete removes a sketch.
func (s *SketchClient) Delete(ctx context.Context, id string) error {
	req, err := s.newRequest(ctx, http.MethodDelete, "/sketches/"+url.PathEscape(id), nil, "")
	if err != nil {
		return err
	}
	err = s.do(req, nil)
	s.forget(id)
	if err != nil {
		return fmt.Errorf("delete sketch %s: %w", id, err)
	}
	return nil
}

func (s *SketchClient) forget(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

func (b sketchBody) record() (sketchpad.Record, error) {
	raw := []byte(b.State)
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}
	st, err := sketchpad.ParseState(raw)
	if err != nil {
		return sketchpad.Record{}, err
	}
	return sketchpad.Record{
		ID:        b.ID,
		Details:   b.details(),
		State:     st,
		ImageURL:  b.imageURL(),
		CreatedAt: parseTime(b.CreatedAt),
		UpdatedAt: parseTime(b.UpdatedAt),
	}, nil
}

func (s *SketchClient) multipartRequest(ctx context.Context, method, path string, d sketchpad.SaveDetails, st sketchpad.SketchState, png []byte) (*http.Request, error) {
	state, err := st.Encode()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ key, value string }{
		{"name", d.Name},
		{"suspect", d.Suspect},
		{"eyewitness", d.Eyewitness},
		{"officer", d.Officer},
		{"date", d.Date},
		{"reason", d.Reason},
		{"description", d.Description},
		{"priority", string(d.Priority)},
		{"status", string(d.Status)},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}
	if err := w.WriteField("sketch_state", string(state)); err != nil {
		return nil, fmt.Errorf("failed to write field sketch_state: %w", err)
	}
	if png != nil {
		part, err := w.CreateFormFile("image", ImageFilename(d.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(png); err != nil {
			return nil, fmt.Errorf("failed to write image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return s.newRequest(ctx, method, path, &buf, w.FormDataContentType())
}

// ImageFilename is the upload file name of a sketch image.
func ImageFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "sketch"
	}
	return strings.ReplaceAll(name, " ", "_") + ".png"
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parseTime accepts RFC 3339 and zone-less ISO timestamps (read as UTC).
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
