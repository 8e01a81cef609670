package sketchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const (
	SoftwareName    = "Forensic Face Builder v2.0"
	SoftwareVersion = "2.0"

	// exportConcurrency bounds parallel image loads during rasterization.
	exportConcurrency = 8
)

// Exporter renders sketch states off-screen and writes export artifacts.
type Exporter struct {
	images ImageSource
	log    zerolog.Logger
	now    func() time.Time
}

// NewExporter creates an exporter reading feature images from images.
func NewExporter(images ImageSource, log zerolog.Logger) *Exporter {
	return &Exporter{images: images, log: log, now: time.Now}
}

// WithSource returns a copy of the exporter reading from images.
func (x *Exporter) WithSource(images ImageSource) *Exporter {
	c := *x
	c.images = images
	return &c
}

// Rasterize draws st at its export quality: background, then every visible
// feature by ascending z with translate, rotate, flip, opacity and
// brightness/contrast applied. All feature images are loaded concurrently and
// awaited before drawing; images that fail to load are drawn as placeholders.
func (x *Exporter) Rasterize(ctx context.Context, st SketchState) (*image.RGBA, error) {
	q := st.CanvasSettings.Quality.Multiplier()
	dst := image.NewRGBA(image.Rect(0, 0, CanvasWidth*q, CanvasHeight*q))
	bg := backgroundColor(st.CanvasSettings).RGBA()
	xdraw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, xdraw.Src)

	features := make([]PlacedFeature, 0, len(st.Features))
	for _, f := range st.Features {
		if f.Visible {
			features = append(features, f)
		}
	}
	sortByZ(features)

	loaded, err := x.loadImages(ctx, features)
	if err != nil {
		return nil, err
	}

	scale := scaleTransform(float64(q))
	for i := range features {
		f := &features[i]
		src := loaded[f.Asset.Path]
		if src == nil {
			src = placeholderImage(int(f.Width), int(f.Height))
		}
		filtered := filterImage(src, BrightnessContrast(f.Brightness, f.Contrast), f.Opacity)
		b := filtered.Bounds()
		m := imageTransform(multiplyAffine(scale, featureTransform(f)), f, b.Dx(), b.Dy())
		xdraw.BiLinear.Transform(dst, toAff3(m), filtered, b, xdraw.Over, nil)
	}
	return dst, nil
}

// loadImages fetches each distinct image reference once. Failed loads map to
// nil; only cancellation is an error.
func (x *Exporter) loadImages(ctx context.Context, features []PlacedFeature) (map[string]image.Image, error) {
	refs := make([]string, 0, len(features))
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		if !seen[f.Asset.Path] {
			seen[f.Asset.Path] = true
			refs = append(refs, f.Asset.Path)
		}
	}

	results := make([]image.Image, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			if ref == "" || x.images == nil {
				return nil
			}
			img, err := x.images.Image(gctx, ref)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				x.log.Warn().Err(err).Str("ref", ref).Msg("export image failed, using placeholder")
				return nil
			}
			results[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load export images: %w", err)
	}

	out := make(map[string]image.Image, len(refs))
	for i, ref := range refs {
		if results[i] != nil {
			out[ref] = results[i]
		}
	}
	return out, nil
}

// EncodePNG returns img as PNG bytes, the payload of a remote save.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPNG rasterizes st and encodes it.
func (x *Exporter) RenderPNG(ctx context.Context, st SketchState) ([]byte, error) {
	img, err := x.Rasterize(ctx, st)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// exportTimestamp formats t as an ISO-8601 UTC timestamp with millisecond
// precision.
func exportTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ExportBaseName returns the file stem for an export artifact, e.g.
// "forensic-sketch-CASE1-2024-03-01T10-20-30-000Z". kind is "sketch",
// "metadata" or "project". An empty case number becomes "case".
func ExportBaseName(kind, caseNumber string, t time.Time) string {
	if caseNumber == "" {
		caseNumber = "case"
	}
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(exportTimestamp(t))
	return fmt.Sprintf("forensic-%s-%s-%s", kind, caseNumber, ts)
}

// ExportAsset is the asset reference recorded in export metadata.
type ExportAsset struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Path     string   `json:"path"`
}

// ExportSize is a width/height pair.
type ExportSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ExportFeature is one feature transform in export metadata.
type ExportFeature struct {
	ID         string      `json:"id"`
	Asset      ExportAsset `json:"asset"`
	Position   Vec2        `json:"position"`
	Size       ExportSize  `json:"size"`
	Rotation   float64     `json:"rotation"`
	Opacity    float64     `json:"opacity"`
	ZIndex     int         `json:"zIndex"`
	Locked     bool        `json:"locked"`
	Visible    bool        `json:"visible"`
	FlipH      bool        `json:"flipH"`
	FlipV      bool        `json:"flipV"`
	Brightness float64     `json:"brightness"`
	Contrast   float64     `json:"contrast"`
	Scale      float64     `json:"scale"`
}

// ExportMetadata is the JSON document written next to an exported PNG.
type ExportMetadata struct {
	CaseInfo       CaseInfo        `json:"caseInfo"`
	Features       []ExportFeature `json:"features"`
	CanvasSettings CanvasSettings  `json:"canvasSettings"`
	ExportDate     string          `json:"exportDate"`
	Software       string          `json:"software"`
	Version        string          `json:"version"`
}

// BuildMetadata describes st as of t.
func BuildMetadata(st SketchState, t time.Time) ExportMetadata {
	md := ExportMetadata{
		CaseInfo:       st.CaseInfo,
		Features:       make([]ExportFeature, len(st.Features)),
		CanvasSettings: st.CanvasSettings,
		ExportDate:     exportTimestamp(t),
		Software:       SoftwareName,
		Version:        SoftwareVersion,
	}
	for i, f := range st.Features {
		md.Features[i] = ExportFeature{
			ID: f.ID,
			Asset: ExportAsset{
				ID: f.Asset.ID, Name: f.Asset.Name, Category: f.Asset.Category, Path: f.Asset.Path,
			},
			Position:   Vec2{X: f.X, Y: f.Y},
			Size:       ExportSize{Width: f.Width, Height: f.Height},
			Rotation:   f.Rotation,
			Opacity:    f.Opacity,
			ZIndex:     f.ZIndex,
			Locked:     f.Locked,
			Visible:    f.Visible,
			FlipH:      f.FlipH,
			FlipV:      f.FlipV,
			Brightness: f.Brightness,
			Contrast:   f.Contrast,
			Scale:      f.Scale,
		}
	}
	return md
}

// ExportResult lists the files written by Export.
type ExportResult struct {
	ImagePath    string
	MetadataPath string
	Width        int
	Height       int
}

// Export rasterizes st and writes the PNG and its metadata document into dir.
func (x *Exporter) Export(ctx context.Context, st SketchState, dir string) (ExportResult, error) {
	img, err := x.Rasterize(ctx, st)
	if err != nil {
		return ExportResult{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	now := x.now()
	res := ExportResult{
		ImagePath:    filepath.Join(dir, ExportBaseName("sketch", st.CaseInfo.CaseNumber, now)+".png"),
		MetadataPath: filepath.Join(dir, ExportBaseName("metadata", st.CaseInfo.CaseNumber, now)+".json"),
		Width:        img.Bounds().Dx(),
		Height:       img.Bounds().Dy(),
	}
	if err := writePNG(res.ImagePath, img); err != nil {
		return ExportResult{}, err
	}
	if err := writeJSON(res.MetadataPath, BuildMetadata(st, now)); err != nil {
		return ExportResult{}, err
	}
	x.log.Info().Str("image", res.ImagePath).Int("width", res.Width).Int("height", res.Height).Msg("sketch exported")
	return res, nil
}

// ProjectInfo is the header of a project file.
type ProjectInfo struct {
	Version      string `json:"version"`
	Created      string `json:"created"`
	LastModified string `json:"lastModified"`
	FeatureCount int    `json:"featureCount"`
	Software     string `json:"software"`
}

// Project is the portable project file (.ffb): the full sketch state plus a
// header.
type Project struct {
	SketchState
	Metadata ProjectInfo `json:"metadata"`
}

// MarshalJSON flattens the state next to the metadata header.
func (p Project) MarshalJSON() ([]byte, error) {
	state, err := json.Marshal(p.SketchState)
	if err != nil {
		return nil, err
	}
	return mergeJSON(state, "metadata", p.Metadata)
}

// UnmarshalJSON reads the state and header of a project file.
func (p *Project) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &p.SketchState); err != nil {
		return err
	}
	var hdr struct {
		Metadata ProjectInfo `json:"metadata"`
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		return err
	}
	p.Metadata = hdr.Metadata
	return nil
}

// SaveProject writes st as a project file into dir and returns its path.
func (x *Exporter) SaveProject(st SketchState, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	now := x.now()
	ts := exportTimestamp(now)
	p := Project{
		SketchState: st,
		Metadata: ProjectInfo{
			Version:      SoftwareVersion,
			Created:      ts,
			LastModified: ts,
			FeatureCount: len(st.Features),
			Software:     SoftwareName,
		},
	}
	path := filepath.Join(dir, ExportBaseName("project", st.CaseInfo.CaseNumber, now)+".ffb")
	if err := writeJSON(path, p); err != nil {
		return "", err
	}
	return path, nil
}

// LoadProject reads a project file.
func LoadProject(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("parse project %s: %w", path, err)
	}
	return p, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// mergeJSON adds key=v to the JSON object obj.
func mergeJSON(obj []byte, key string, v any) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields[key] = raw
	return json.Marshal(fields)
}
