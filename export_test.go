package sketchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var exportTime = time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)

func redSource(calls *atomic.Int32) ImageSource {
	return ImageSourceFunc(func(_ context.Context, ref string) (image.Image, error) {
		if calls != nil {
			calls.Add(1)
		}
		if strings.HasPrefix(ref, "broken") {
			return nil, errors.New("404")
		}
		return solidImage(10, 10, color.NRGBA{255, 0, 0, 255}), nil
	})
}

func exportState(features ...PlacedFeature) SketchState {
	return SketchState{
		Features:       features,
		CanvasSettings: DefaultCanvasSettings(),
		Zoom:           100,
		CaseInfo:       CaseInfo{CaseNumber: "CASE1"},
	}
}

func exportFeature(id string, r Rect) PlacedFeature {
	f := featureDefaults()
	f.ID = id
	f.Asset = testAsset(id, CategoryNose)
	f.X, f.Y, f.Width, f.Height = r.X, r.Y, r.Width, r.Height
	return f
}

func newTestExporter(src ImageSource) *Exporter {
	x := NewExporter(src, zerolog.Nop())
	x.now = func() time.Time { return exportTime }
	return x
}

func TestRasterizeSizeByQuality(t *testing.T) {
	x := newTestExporter(redSource(nil))
	st := exportState()

	img, err := x.Rasterize(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1200 || b.Dy() != 1400 {
		t.Errorf("high quality size = %v, want 1200x1400", b)
	}

	st.CanvasSettings.Quality = QualityStandard
	img, _ = x.Rasterize(context.Background(), st)
	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 700 {
		t.Errorf("standard quality size = %v, want 600x700", b)
	}
}

func TestRasterizeDrawsFeatures(t *testing.T) {
	var calls atomic.Int32
	x := newTestExporter(redSource(&calls))
	a := exportFeature("a", Rect{100, 100, 100, 100})
	b := exportFeature("b", Rect{300, 100, 100, 100})
	b.Asset.Path = a.Asset.Path
	hidden := exportFeature("hidden", Rect{100, 400, 100, 100})
	hidden.Visible = false
	st := exportState(a, b, hidden)
	st.CanvasSettings.Quality = QualityStandard

	img, err := x.Rasterize(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(150, 150); got.R < 250 || got.G > 5 || got.B > 5 {
		t.Errorf("feature pixel = %v, want red", got)
	}
	if got := img.RGBAAt(10, 10); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("background pixel = %v, want white", got)
	}
	if got := img.RGBAAt(150, 450); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("hidden feature drawn: %v", got)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("image loads = %d, want 1 for a shared reference", n)
	}
}

func TestRasterizeOpacity(t *testing.T) {
	x := newTestExporter(redSource(nil))
	a := exportFeature("a", Rect{100, 100, 100, 100})
	a.Opacity = 0.5
	st := exportState(a)
	st.CanvasSettings.Quality = QualityStandard

	img, _ := x.Rasterize(context.Background(), st)
	got := img.RGBAAt(150, 150)
	if got.R < 250 || got.G < 120 || got.G > 135 {
		t.Errorf("half-transparent red over white = %v", got)
	}
}

func TestRasterizePlaceholderOnFailure(t *testing.T) {
	x := newTestExporter(redSource(nil))
	a := exportFeature("a", Rect{100, 100, 100, 100})
	a.Asset.Path = "broken.png"
	st := exportState(a)
	st.CanvasSettings.Quality = QualityStandard

	img, err := x.Rasterize(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(120, 160); got != (color.RGBA{0xe5, 0xe7, 0xeb, 0xff}) {
		t.Errorf("placeholder pixel = %v", got)
	}
}

func TestRasterizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := ImageSourceFunc(func(ctx context.Context, _ string) (image.Image, error) {
		return nil, ctx.Err()
	})
	x := newTestExporter(src)
	if _, err := x.Rasterize(ctx, exportState(exportFeature("a", Rect{0, 0, 50, 50}))); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRenderPNGDecodes(t *testing.T) {
	x := newTestExporter(redSource(nil))
	data, err := x.PrepareRender(exportState(exportFeature("a", Rect{0, 0, 50, 50})))(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	img, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1200 || b.Dy() != 1400 {
		t.Errorf("decoded size = %v", b)
	}
}

func TestExportBaseName(t *testing.T) {
	tests := []struct {
		kind, caseNumber, want string
	}{
		{"sketch", "CASE1", "forensic-sketch-CASE1-2024-03-01T10-20-30-000Z"},
		{"metadata", "", "forensic-metadata-case-2024-03-01T10-20-30-000Z"},
	}
	for _, tt := range tests {
		if got := ExportBaseName(tt.kind, tt.caseNumber, exportTime); got != tt.want {
			t.Errorf("ExportBaseName(%q, %q) = %q, want %q", tt.kind, tt.caseNumber, got, tt.want)
		}
	}
}

func TestExportWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	x := newTestExporter(redSource(nil))
	a := exportFeature("a", Rect{10, 20, 30, 40})
	a.Rotation = 15
	st := exportState(a)

	res, err := x.Export(context.Background(), st, dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Width != 1200 || res.Height != 1400 {
		t.Errorf("size = %dx%d", res.Width, res.Height)
	}
	if filepath.Base(res.ImagePath) != "forensic-sketch-CASE1-2024-03-01T10-20-30-000Z.png" {
		t.Errorf("ImagePath = %s", res.ImagePath)
	}
	if _, err := os.Stat(res.ImagePath); err != nil {
		t.Errorf("image not written: %v", err)
	}

	data, err := os.ReadFile(res.MetadataPath)
	if err != nil {
		t.Fatal(err)
	}
	var md ExportMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		t.Fatal(err)
	}
	if md.Software != SoftwareName || md.Version != SoftwareVersion {
		t.Errorf("software = %q %q", md.Software, md.Version)
	}
	if md.ExportDate != "2024-03-01T10:20:30.000Z" {
		t.Errorf("ExportDate = %q", md.ExportDate)
	}
	if md.CaseInfo.CaseNumber != "CASE1" {
		t.Errorf("CaseNumber = %q", md.CaseInfo.CaseNumber)
	}
	if len(md.Features) != 1 {
		t.Fatalf("features = %d", len(md.Features))
	}
	f := md.Features[0]
	if f.Position != (Vec2{X: 10, Y: 20}) || f.Size != (ExportSize{Width: 30, Height: 40}) || f.Rotation != 15 {
		t.Errorf("feature = %+v", f)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	dir := t.TempDir()
	x := newTestExporter(nil)
	st := exportState(exportFeature("a", Rect{10, 20, 30, 40}), exportFeature("b", Rect{0, 0, 50, 50}))
	st.SelectedFeatures = []string{"b"}

	path, err := x.SaveProject(st, dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".ffb" {
		t.Errorf("path = %s, want .ffb", path)
	}
	p, err := LoadProject(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Metadata.FeatureCount != 2 || p.Metadata.Software != SoftwareName {
		t.Errorf("Metadata = %+v", p.Metadata)
	}
	if len(p.Features) != 2 || p.Features[0].Height != 40 {
		t.Errorf("Features = %+v", p.Features)
	}
	if !equalStrings(p.SelectedFeatures, []string{"b"}) {
		t.Errorf("SelectedFeatures = %v", p.SelectedFeatures)
	}

	raw, _ := os.ReadFile(path)
	var doc map[string]json.RawMessage
	json.Unmarshal(raw, &doc)
	if _, ok := doc["features"]; !ok {
		t.Error("project should keep the state fields at top level")
	}
}

func TestLoadProjectErrors(t *testing.T) {
	if _, err := LoadProject(filepath.Join(t.TempDir(), "missing.ffb")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.ffb")
	os.WriteFile(path, []byte("{"), 0o644)
	if _, err := LoadProject(path); err == nil {
		t.Error("expected error for bad JSON")
	}
}
