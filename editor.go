package sketchpad

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog"
)

const (
	// zoomDuration is the length of the animated wheel zoom in seconds.
	zoomDuration = 0.15
	// defaultProbeInterval is how often connectivity is checked.
	defaultProbeInterval = 15 * time.Second
)

// Options configures NewEditor. Zero values select defaults; nil stores
// disable the corresponding persistence path.
type Options struct {
	Width, Height int

	Records RecordStore
	Drafts  DraftStore
	Images  ImageSource
	Catalog *Catalog

	// Probe checks connectivity; its result drives the online flag.
	Probe         func(ctx context.Context) error
	ProbeInterval time.Duration

	// Exec runs blocking work. Defaults to a new AsyncExecutor.
	Exec Executor
	Log  *zerolog.Logger

	Persist         PersistConfig
	HistoryCapacity int
	GridSize        int
	Quality         ExportQuality

	ExportDir     string
	ScreenshotDir string
}

// Editor is the composite sketch editor. It owns the scene and every
// component operating on it and implements ebiten.Game. All methods must be
// called from the game loop.
type Editor struct {
	scene      *Scene
	history    *History
	controller *Controller
	renderer   *Renderer
	images     *ImageCache
	persist    *Manager
	exporter   *Exporter
	catalog    *Catalog
	categories *CategoryTable

	exec  Executor
	async *AsyncExecutor
	log   zerolog.Logger

	width, height int

	injectQueue     []syntheticPointerEvent
	script          *ScriptRunner
	screenshotQueue []string
	screenshotDir   string
	exportDir       string

	probe         func(ctx context.Context) error
	probeInterval time.Duration
	nextProbe     time.Time
	probing       bool

	panning   bool
	panStart  Vec2
	panOrigin Vec2

	exporting  bool
	status     string
	showStatus bool
	showFPS    bool
	debug      bool
}

// NewEditor creates an editor with a blank sketch.
func NewEditor(opts Options) *Editor {
	e := &Editor{
		width:         opts.Width,
		height:        opts.Height,
		catalog:       opts.Catalog,
		categories:    NewCategoryTable(),
		exec:          opts.Exec,
		log:           zerolog.Nop(),
		screenshotDir: opts.ScreenshotDir,
		exportDir:     opts.ExportDir,
		probe:         opts.Probe,
		probeInterval: opts.ProbeInterval,
		showStatus:    true,
	}
	if opts.Log != nil {
		e.log = *opts.Log
	}
	if e.width <= 0 || e.height <= 0 {
		e.width, e.height = 1024, 800
	}
	if e.exec == nil {
		e.async = NewAsyncExecutor()
		e.exec = e.async
	} else if a, ok := e.exec.(*AsyncExecutor); ok {
		e.async = a
	}
	if e.screenshotDir == "" {
		e.screenshotDir = "screenshots"
	}
	if e.exportDir == "" {
		e.exportDir = "exports"
	}
	if e.probeInterval <= 0 {
		e.probeInterval = defaultProbeInterval
	}

	e.scene = NewScene()
	if opts.GridSize > 0 {
		e.scene.SetGrid(GridSettings{Show: true, Size: opts.GridSize})
	}
	if opts.Quality != "" {
		cs := e.scene.Settings()
		cs.Quality = opts.Quality
		e.scene.SetSettings(cs)
	}
	e.centerCanvas()

	e.history = NewHistory(opts.HistoryCapacity)
	e.history.Reset(e.scene.Snapshot())

	e.renderer = NewRenderer()
	e.scene.OnChange(func(ChangeKind) { e.renderer.Invalidate() })

	source := opts.Images
	if source == nil {
		source = ImageSourceFunc(func(ctx context.Context, ref string) (image.Image, error) {
			return nil, fmt.Errorf("no image source for %q", ref)
		})
	}
	e.images = NewImageCache(source, e.exec, e.log)
	e.images.OnLoad(func(string) { e.renderer.Invalidate() })

	e.controller = NewController(e.scene, e.commit)
	e.exporter = NewExporter(e.images, e.log)

	e.persist = NewManager(e.scene, e.history, ManagerOptions{
		Drafts:  opts.Drafts,
		Records: opts.Records,
		Raster:  e.exporter,
		Exec:    e.exec,
		Log:     &e.log,
		Config:  opts.Persist,
	})
	e.persist.OnSave(e.saved)
	e.persist.OnLoad(e.loaded)
	e.RefreshCatalog()
	return e
}

// centerCanvas pans so the canvas sits in the middle of the window.
func (e *Editor) centerCanvas() {
	s := e.scene.camera.Scale()
	e.scene.SetPan(Vec2{
		X: math.Round((float64(e.width) - CanvasWidth*s) / 2),
		Y: math.Round((float64(e.height) - CanvasHeight*s) / 2),
	})
}

// Scene returns the edited scene.
func (e *Editor) Scene() *Scene { return e.scene }

// History returns the undo history.
func (e *Editor) History() *History { return e.history }

// Controller returns the pointer interaction controller.
func (e *Editor) Controller() *Controller { return e.controller }

// Renderer returns the live renderer.
func (e *Editor) Renderer() *Renderer { return e.renderer }

// Persistence returns the persistence manager.
func (e *Editor) Persistence() *Manager { return e.persist }

// Categories returns the category table.
func (e *Editor) Categories() *CategoryTable { return e.categories }

// Images returns the image cache.
func (e *Editor) Images() *ImageCache { return e.images }

// Status returns the last status message.
func (e *Editor) Status() string { return e.status }

// SetScript attaches a replay script; it runs one step per frame.
func (e *Editor) SetScript(r *ScriptRunner) { e.script = r }

// Script returns the attached replay script, if any.
func (e *Editor) Script() *ScriptRunner { return e.script }

// SetDebug enables per-frame render statistics in the log.
func (e *Editor) SetDebug(on bool) { e.debug = on }

func (e *Editor) setStatus(format string, args ...any) {
	e.status = fmt.Sprintf(format, args...)
	e.log.Debug().Str("status", e.status).Msg("status")
}

// --- Placement ---

// PlaceAsset adds asset at its smart position, selects it and records the
// change. Returns the new feature id.
func (e *Editor) PlaceAsset(asset FeatureAsset) string {
	return e.placeAt(asset, SmartPosition(e.scene, asset.Category))
}

// DropAsset adds asset with its top-left corner at a screen position.
func (e *Editor) DropAsset(asset FeatureAsset, screenX, screenY float64) string {
	return e.placeAt(asset, DropPosition(e.scene, screenX, screenY))
}

func (e *Editor) placeAt(asset FeatureAsset, pos Vec2) string {
	id, err := e.scene.Add(NewPlacedFeature(e.scene, asset, pos))
	if err != nil {
		e.log.Error().Err(err).Str("asset", asset.ID).Msg("place feature")
		return ""
	}
	e.scene.Select(id)
	e.commit()
	e.recordUsage(asset.ID)
	return id
}

func (e *Editor) recordUsage(assetID string) {
	if e.catalog == nil || assetID == "" {
		return
	}
	catalog := e.catalog
	e.exec.Go(func(ctx context.Context) func() {
		err := catalog.RecordUsage(ctx, assetID)
		return func() {
			if err != nil {
				e.log.Debug().Err(err).Str("asset", assetID).Msg("usage not recorded")
				return
			}
			e.RefreshCatalog()
		}
	})
}

// RefreshCatalog fetches the asset list in the background if it is stale.
func (e *Editor) RefreshCatalog() {
	if e.catalog == nil {
		return
	}
	catalog := e.catalog
	e.exec.Go(func(ctx context.Context) func() {
		assets, err := catalog.Assets(ctx, false)
		return func() {
			if err != nil {
				e.log.Warn().Err(err).Msg("asset catalog unavailable")
				return
			}
			e.log.Debug().Int("assets", len(assets)).Msg("asset catalog loaded")
		}
	})
}

// placeFirstOf places the first catalog asset of category c.
func (e *Editor) placeFirstOf(c Category) {
	if e.catalog == nil {
		return
	}
	for _, a := range e.catalog.Cached() {
		if a.Category == c {
			e.PlaceAsset(a)
			return
		}
	}
	e.setStatus("no %s assets loaded", c)
}

// --- Persistence commands ---

// Save stores the sketch remotely with the current save details.
func (e *Editor) Save() error {
	err := e.persist.Save(e.scene.Details())
	switch {
	case errors.Is(err, ErrNameRequired):
		e.setStatus("enter a sketch name before saving")
	case err != nil:
		e.setStatus("save failed: %v", err)
	default:
		e.setStatus("saving...")
	}
	return err
}

func (e *Editor) saved(r SaveResult) {
	if r.Err != nil {
		e.setStatus("save failed: %v", r.Err)
		return
	}
	e.setStatus("saved %s", r.RecordID)
}

func (e *Editor) loaded(r LoadResult) {
	e.controller.Cancel()
	switch r.Source {
	case LoadedRemote:
		e.setStatus("loaded %s", r.RecordID)
	case LoadedDraft:
		e.setStatus("restored local draft")
	default:
		if r.Err != nil {
			e.setStatus("could not load sketch, starting blank")
		} else {
			e.setStatus("new sketch")
		}
	}
	e.renderer.Invalidate()
}

// Load opens a stored sketch; an empty id restores the unsaved draft.
func (e *Editor) Load(id string) {
	e.controller.Cancel()
	e.setStatus("loading...")
	e.persist.Load(id)
}

// NewSketch discards the current sketch.
func (e *Editor) NewSketch() {
	e.controller.Cancel()
	e.persist.NewSketch()
	e.setStatus("new sketch")
}

// Export writes a PNG and metadata of the sketch to the export directory.
func (e *Editor) Export() {
	if e.exporting {
		return
	}
	st := StateFromScene(e.scene)
	ex := e.exporter.detached(st)
	dir := e.exportDir
	e.exporting = true
	e.setStatus("exporting...")
	e.exec.Go(func(ctx context.Context) func() {
		res, err := ex.Export(ctx, st, dir)
		return func() {
			e.exporting = false
			if err != nil {
				e.log.Error().Err(err).Msg("export failed")
				e.setStatus("export failed: %v", err)
				return
			}
			e.setStatus("exported %s", res.ImagePath)
		}
	})
}

// SaveProject writes a project file to the export directory.
func (e *Editor) SaveProject() (string, error) {
	path, err := e.exporter.SaveProject(StateFromScene(e.scene), e.exportDir)
	if err != nil {
		e.setStatus("project save failed: %v", err)
		return "", err
	}
	e.setStatus("project saved %s", path)
	return path, nil
}

// OpenProject replaces the scene with a project file's content. The record
// identity is kept.
func (e *Editor) OpenProject(path string) error {
	p, err := LoadProject(path)
	if err != nil {
		return err
	}
	e.controller.Cancel()
	ApplyState(e.scene, p.SketchState)
	e.history.Reset(e.scene.Snapshot())
	e.setStatus("opened %s", path)
	return nil
}

// SetOnline sets the connectivity flag used by autosave.
func (e *Editor) SetOnline(online bool) {
	e.persist.SetOnline(online)
}

// --- View ---

// ZoomBy animates the zoom by delta percent.
func (e *Editor) ZoomBy(delta float64) {
	e.scene.ZoomTo(e.scene.camera.Zoom+delta, zoomDuration)
}

// --- Game loop ---

// Frame advances one frame without polling input devices: completed tasks
// are applied, the script steps, one injected event is processed and timers
// tick. Update does the same with real input.
func (e *Editor) Frame(dt float32) {
	e.beginFrame()
	e.processInjectedInput()
	e.endFrame(dt)
}

func (e *Editor) beginFrame() {
	if e.async != nil {
		e.async.Drain()
	}
	if e.script != nil {
		e.script.step(e)
	}
}

func (e *Editor) endFrame(dt float32) {
	e.controller.Tick(dt)
	e.scene.Tick(dt)
	if e.controller.Animating() {
		e.renderer.Invalidate()
	}
	e.persist.Tick()
	e.tickProbe()
}

func (e *Editor) tickProbe() {
	if e.probe == nil || e.probing {
		return
	}
	now := time.Now()
	if now.Before(e.nextProbe) {
		return
	}
	e.nextProbe = now.Add(e.probeInterval)
	e.probing = true
	probe := e.probe
	e.exec.Go(func(ctx context.Context) func() {
		err := probe(ctx)
		return func() {
			e.probing = false
			e.SetOnline(err == nil)
		}
	})
}

// Update implements ebiten.Game.
func (e *Editor) Update() error {
	tps := ebiten.TPS()
	if tps <= 0 {
		tps = 60
	}
	e.beginFrame()
	if !e.processInjectedInput() {
		e.pollPointer()
	}
	e.pollKeys()
	e.endFrame(float32(1.0 / float64(tps)))
	return nil
}

// Draw implements ebiten.Game.
func (e *Editor) Draw(screen *ebiten.Image) {
	start := time.Now()
	compiled := e.renderer.Prepare(e.renderInput())
	e.renderer.Draw(screen, e.images, compiled)
	if compiled {
		e.debugLog(time.Since(start))
	}
	if e.showStatus {
		e.drawStatus(screen)
	}
	e.flushScreenshots(screen)
}

func (e *Editor) renderInput() renderInput {
	id, alpha := e.controller.AutoSelected()
	return renderInput{scene: e.scene, images: e.images.Lookup, autoID: id, autoAlpha: alpha}
}

// Layout implements ebiten.Game.
func (e *Editor) Layout(outsideWidth, outsideHeight int) (int, int) {
	return e.width, e.height
}

// Close flushes the pending draft and stops background work.
func (e *Editor) Close(ctx context.Context) error {
	err := e.persist.Close(ctx)
	if e.async != nil {
		e.async.Close()
	}
	return err
}

// --- Device input ---

func currentModifiers() KeyModifiers {
	var m KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		m |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		m |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		m |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		m |= ModMeta
	}
	return m
}

func (e *Editor) pollPointer() {
	mx, my := ebiten.CursorPosition()
	sx, sy := float64(mx), float64(my)
	x, y := e.scene.camera.ScreenToCanvas(sx, sy)

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		e.controller.PointerDown(x, y, currentModifiers())
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		e.controller.PointerUp(x, y)
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && e.controller.State() != StateIdle:
		e.controller.PointerMove(x, y)
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonMiddle) {
		e.panning = true
		e.panStart = Vec2{X: sx, Y: sy}
		e.panOrigin = e.scene.camera.Pan
	}
	if e.panning {
		if ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) {
			e.scene.SetPan(Vec2{X: e.panOrigin.X + sx - e.panStart.X, Y: e.panOrigin.Y + sy - e.panStart.Y})
		} else {
			e.panning = false
		}
	}

	if _, wy := ebiten.Wheel(); wy > 0 {
		e.ZoomBy(ZoomStep)
	} else if wy < 0 {
		e.ZoomBy(-ZoomStep)
	}
}

var keyBindings = []struct {
	ebiten ebiten.Key
	key    Key
}{
	{ebiten.KeyA, KeyA},
	{ebiten.KeyD, KeyD},
	{ebiten.KeyE, KeyE},
	{ebiten.KeyH, KeyH},
	{ebiten.KeyS, KeyS},
	{ebiten.KeyV, KeyV},
	{ebiten.KeyY, KeyY},
	{ebiten.KeyZ, KeyZ},
	{ebiten.KeyDelete, KeyDelete},
	{ebiten.KeyBackspace, KeyBackspace},
	{ebiten.KeyEscape, KeyEscape},
	{ebiten.KeyBracketLeft, KeyBracketLeft},
	{ebiten.KeyBracketRight, KeyBracketRight},
	{ebiten.KeyEqual, KeyEqual},
	{ebiten.KeyNumpadAdd, KeyPlus},
	{ebiten.KeyMinus, KeyMinus},
	{ebiten.KeyNumpadSubtract, KeyMinus},
}

var digitKeys = [...]ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5,
	ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9, ebiten.Key0,
}

func (e *Editor) pollKeys() {
	mods := currentModifiers()
	for _, b := range keyBindings {
		if inpututil.IsKeyJustPressed(b.ebiten) {
			e.HandleKey(b.key, mods)
		}
	}
	if mods != 0 {
		return
	}
	for i, k := range digitKeys {
		if i < len(BuiltinCategories) && inpututil.IsKeyJustPressed(k) {
			c := BuiltinCategories[i]
			if err := e.categories.Select(c); err == nil {
				e.placeFirstOf(c)
			}
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		e.showStatus = !e.showStatus
	}
}
