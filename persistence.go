package sketchpad

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNameRequired   = errors.New("sketch name is required")
	ErrDraftNotFound  = errors.New("draft not found")
	ErrRecordNotFound = errors.New("sketch record not found")
	ErrSaveInProgress = errors.New("a save is already in progress")
)

const (
	DefaultDraftDebounce    = 2 * time.Second
	DefaultAutosaveInterval = 30 * time.Second
)

// Record is a sketch as stored by the sketch store service.
type Record struct {
	ID        string
	Details   SaveDetails
	State     SketchState
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordStore is the remote sketch store. A nil image on Update is a
// state-only update.
type RecordStore interface {
	Create(ctx context.Context, details SaveDetails, state SketchState, png []byte) (string, error)
	Update(ctx context.Context, id string, details SaveDetails, state SketchState, png []byte) error
	Get(ctx context.Context, id string, force bool) (Record, error)
}

// DraftStore keeps drafts on the local machine. LoadDraft returns
// ErrDraftNotFound for unknown keys.
type DraftStore interface {
	SaveDraft(ctx context.Context, key string, d Draft) error
	LoadDraft(ctx context.Context, key string) (Draft, error)
	DeleteDraft(ctx context.Context, key string) error
}

// Rasterizer produces the image payload of a save. PrepareRender runs on the
// update loop; the returned function is called from an executor task.
type Rasterizer interface {
	PrepareRender(st SketchState) func(ctx context.Context) ([]byte, error)
}

// PrepareRender implements Rasterizer. When the exporter reads through an
// ImageCache, already decoded images are captured now so the task never
// touches the cache.
func (x *Exporter) PrepareRender(st SketchState) func(ctx context.Context) ([]byte, error) {
	ex := x.detached(st)
	return func(ctx context.Context) ([]byte, error) {
		return ex.RenderPNG(ctx, st)
	}
}

func (x *Exporter) detached(st SketchState) *Exporter {
	c, ok := x.images.(*ImageCache)
	if !ok {
		return x
	}
	refs := make([]string, len(st.Features))
	for i, f := range st.Features {
		refs[i] = f.Asset.Path
	}
	return x.WithSource(c.Detached(refs))
}

// LoadSource tells where a loaded sketch came from.
type LoadSource uint8

const (
	LoadedRemote LoadSource = iota
	LoadedDraft
	LoadedBlank
)

func (s LoadSource) String() string {
	switch s {
	case LoadedRemote:
		return "remote"
	case LoadedDraft:
		return "draft"
	default:
		return "blank"
	}
}

// LoadResult reports a finished load.
type LoadResult struct {
	RecordID string
	Source   LoadSource
	// Err is the remote failure that caused a fallback, if any.
	Err error
}

// SaveResult reports a finished remote save.
type SaveResult struct {
	RecordID string
	Created  bool
	Err      error
}

// PersistConfig holds the persistence timings.
type PersistConfig struct {
	DraftDebounce    time.Duration
	AutosaveInterval time.Duration
}

// DefaultPersistConfig returns a 2s draft debounce and 30s autosave.
func DefaultPersistConfig() PersistConfig {
	return PersistConfig{DraftDebounce: DefaultDraftDebounce, AutosaveInterval: DefaultAutosaveInterval}
}

// Manager keeps a scene durable: debounced local drafts, explicit remote
// saves with read-after-write, periodic autosave and loading with fallback.
// All methods run on the update loop; network and storage calls go through
// the executor and their results are applied back on the loop.
type Manager struct {
	scene   *Scene
	history *History
	drafts  DraftStore
	records RecordStore
	raster  Rasterizer
	exec    Executor
	log     zerolog.Logger
	metrics *persistMetrics
	cfg     PersistConfig
	now     func() time.Time

	recordID string
	online   bool

	draftDue     time.Time
	nextAutosave time.Time
	autosaving   bool
	saving       bool
	lastHash     string

	// generation increases whenever the sketch identity changes; late
	// results from an older generation are dropped.
	generation uint64
	applying   bool
	loading    bool

	onLoad func(LoadResult)
	onSave func(SaveResult)

	listener ListenerHandle
}

// ManagerOptions configures NewManager. Drafts and Records may be nil to
// disable the respective store.
type ManagerOptions struct {
	Drafts  DraftStore
	Records RecordStore
	Raster  Rasterizer
	Exec    Executor
	Log     *zerolog.Logger
	Config  PersistConfig
	Now     func() time.Time
}

// NewManager creates a manager for scene and history and starts listening
// for scene changes.
func NewManager(scene *Scene, history *History, opts ManagerOptions) *Manager {
	m := &Manager{
		scene:   scene,
		history: history,
		drafts:  opts.Drafts,
		records: opts.Records,
		raster:  opts.Raster,
		exec:    opts.Exec,
		log:     zerolog.Nop(),
		cfg:     opts.Config,
		now:     opts.Now,
		online:  true,
	}
	if opts.Log != nil {
		m.log = *opts.Log
	}
	if m.exec == nil {
		m.exec = InlineExecutor{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.cfg.DraftDebounce <= 0 {
		m.cfg.DraftDebounce = DefaultDraftDebounce
	}
	if m.cfg.AutosaveInterval <= 0 {
		m.cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	metrics, err := newPersistMetrics()
	if err != nil {
		m.log.Warn().Err(err).Msg("persistence metrics disabled")
	}
	m.metrics = metrics
	m.listener = scene.OnChange(m.sceneChanged)
	return m
}

// OnLoad sets the callback run after every load.
func (m *Manager) OnLoad(fn func(LoadResult)) { m.onLoad = fn }

// OnSave sets the callback run after every explicit save.
func (m *Manager) OnSave(fn func(SaveResult)) { m.onSave = fn }

// RecordID returns the identity of the current record, empty for an unsaved
// sketch.
func (m *Manager) RecordID() string { return m.recordID }

// Online reports the connectivity flag.
func (m *Manager) Online() bool { return m.online }

// Saving reports whether an explicit save is in flight.
func (m *Manager) Saving() bool { return m.saving }

// Loading reports whether a load is in flight.
func (m *Manager) Loading() bool { return m.loading }

// DraftPending reports whether a draft write is scheduled.
func (m *Manager) DraftPending() bool { return !m.draftDue.IsZero() }

// LastSavedHash returns the structural hash recorded at the last successful
// save or autosave.
func (m *Manager) LastSavedHash() string { return m.lastHash }

// SetOnline updates the connectivity flag. Autosave is suspended while
// offline and resumes on the next interval once back online.
func (m *Manager) SetOnline(online bool) {
	if m.online == online {
		return
	}
	m.online = online
	m.log.Info().Bool("online", online).Msg("connectivity changed")
}

func (m *Manager) sceneChanged(kind ChangeKind) {
	if m.applying {
		return
	}
	m.draftDue = m.now().Add(m.cfg.DraftDebounce)
}

// Tick runs due timers: the draft debounce and the autosave interval.
func (m *Manager) Tick() {
	now := m.now()
	if !m.draftDue.IsZero() && !now.Before(m.draftDue) {
		m.writeDraft()
	}
	if m.recordID != "" && m.online && !m.autosaving && !m.saving {
		if m.nextAutosave.IsZero() {
			m.nextAutosave = now.Add(m.cfg.AutosaveInterval)
		} else if !now.Before(m.nextAutosave) {
			m.nextAutosave = now.Add(m.cfg.AutosaveInterval)
			m.Autosave()
		}
	}
}

// --- Drafts ---

func (m *Manager) draftValue() (string, Draft) {
	return DraftKey(m.recordID), Draft{State: StateFromScene(m.scene), Timestamp: m.now()}
}

// writeDraft stores the current scene as a draft through the executor.
func (m *Manager) writeDraft() {
	m.draftDue = time.Time{}
	if m.drafts == nil {
		return
	}
	key, d := m.draftValue()
	drafts := m.drafts
	m.exec.Go(func(ctx context.Context) func() {
		err := drafts.SaveDraft(ctx, key, d)
		return func() {
			if err != nil {
				m.metrics.draft("failed")
				m.log.Warn().Err(err).Str("key", key).Msg("draft write failed")
				return
			}
			m.metrics.draft("written")
			m.log.Debug().Str("key", key).Int("features", len(d.State.Features)).Msg("draft written")
		}
	})
}

// flushPending writes a scheduled draft now, under the current record's key,
// before the scene it belongs to is replaced.
func (m *Manager) flushPending() {
	if !m.draftDue.IsZero() {
		m.writeDraft()
	}
}

// FlushDraft writes a scheduled draft immediately on the calling goroutine.
// Used on shutdown.
func (m *Manager) FlushDraft(ctx context.Context) error {
	if m.draftDue.IsZero() || m.drafts == nil {
		return nil
	}
	m.draftDue = time.Time{}
	key, d := m.draftValue()
	if err := m.drafts.SaveDraft(ctx, key, d); err != nil {
		m.metrics.draft("failed")
		return fmt.Errorf("flush draft %s: %w", key, err)
	}
	m.metrics.draft("written")
	return nil
}

func (m *Manager) deleteDrafts(keys ...string) {
	if m.drafts == nil {
		return
	}
	drafts := m.drafts
	m.exec.Go(func(ctx context.Context) func() {
		var errs []error
		for _, key := range keys {
			if err := drafts.DeleteDraft(ctx, key); err != nil && !errors.Is(err, ErrDraftNotFound) {
				errs = append(errs, err)
			}
		}
		err := errors.Join(errs...)
		return func() {
			if err != nil {
				m.log.Warn().Err(err).Msg("draft cleanup failed")
			}
		}
	})
}

// --- Remote save ---

// Save stores the scene in the sketch store with details. The name is
// validated before any network call. The image is rasterized, the record
// created or updated, and then re-fetched bypassing caches; the fetched
// state is applied when the scene did not change in the meantime. On
// success the structural hash is recorded and the local drafts are removed,
// unless the scene changed during the save, in which case it is written as
// the record's draft instead.
func (m *Manager) Save(details SaveDetails) error {
	if strings.TrimSpace(details.Name) == "" {
		return ErrNameRequired
	}
	if m.records == nil {
		return errors.New("no sketch store configured")
	}
	if m.saving {
		return ErrSaveInProgress
	}
	m.scene.SetDetails(details)

	st := StateFromScene(m.scene)
	rev := m.scene.Revision()
	gen := m.generation
	id := m.recordID
	created := id == ""
	var render func(ctx context.Context) ([]byte, error)
	if m.raster != nil {
		render = m.raster.PrepareRender(st)
	}
	records := m.records

	m.saving = true
	m.exec.Go(func(ctx context.Context) func() {
		var png []byte
		var err error
		if render != nil {
			png, err = render(ctx)
		}
		if err == nil {
			if created {
				id, err = records.Create(ctx, details, st, png)
			} else {
				err = records.Update(ctx, id, details, st, png)
			}
		}
		var rec Record
		var getErr error
		if err == nil {
			rec, getErr = records.Get(ctx, id, true)
		}
		return func() {
			m.saving = false
			m.finishSave(gen, rev, id, created, st, rec, err, getErr)
		}
	})
	return nil
}

func (m *Manager) finishSave(gen, rev uint64, id string, created bool, st SketchState, rec Record, err, getErr error) {
	if gen != m.generation {
		m.log.Debug().Str("id", id).Msg("discarding save result for a replaced sketch")
		return
	}
	if err != nil {
		m.metrics.save("failed")
		m.log.Error().Err(err).Str("id", id).Msg("sketch save failed")
		m.emitSave(SaveResult{RecordID: m.recordID, Created: created, Err: err})
		return
	}

	m.recordID = id
	hash := StructuralHash(st)
	unchanged := m.scene.Revision() == rev
	if getErr != nil {
		m.log.Warn().Err(getErr).Str("id", id).Msg("re-fetch after save failed")
	} else if unchanged {
		m.apply(rec.State)
		hash = StructuralHash(rec.State)
	}
	m.lastHash = hash
	m.nextAutosave = m.now().Add(m.cfg.AutosaveInterval)
	if unchanged {
		m.draftDue = time.Time{}
		m.deleteDrafts(DraftKey(""), DraftKey(id))
	} else {
		// Edits made while the save was in flight are only in memory; store
		// them under the record's key before dropping the unsaved draft.
		m.writeDraft()
		if created {
			m.deleteDrafts(DraftKey(""))
		}
	}

	m.metrics.save("ok")
	m.log.Info().Str("id", id).Bool("created", created).Msg("sketch saved")
	m.emitSave(SaveResult{RecordID: id, Created: created})
}

func (m *Manager) emitSave(r SaveResult) {
	if m.onSave != nil {
		m.onSave(r)
	}
}

// --- Autosave ---

// Autosave sends a state-only update when the structural hash differs from
// the last saved one. Reports whether a request was started. Failures are
// logged and never surfaced.
func (m *Manager) Autosave() bool {
	if m.recordID == "" || !m.online || m.records == nil || m.autosaving || m.saving {
		return false
	}
	st := StateFromScene(m.scene)
	hash := StructuralHash(st)
	if hash == m.lastHash {
		m.metrics.autosave("skipped")
		return false
	}

	id := m.recordID
	gen := m.generation
	details := m.scene.Details()
	records := m.records
	m.autosaving = true
	m.exec.Go(func(ctx context.Context) func() {
		err := records.Update(ctx, id, details, st, nil)
		return func() {
			m.autosaving = false
			if gen != m.generation {
				return
			}
			if err != nil {
				m.metrics.autosave("failed")
				m.log.Warn().Err(err).Str("id", id).Msg("autosave failed")
				return
			}
			m.metrics.autosave("sent")
			m.lastHash = hash
			m.log.Debug().Str("id", id).Msg("autosaved")
		}
	})
	return true
}

// --- Load ---

// Load opens the record id. The remote record takes precedence; if it cannot
// be fetched the local draft for id is restored, and failing that the editor
// starts blank. An empty id restores the unsaved draft if there is one. The
// history is seeded with exactly one snapshot of the loaded features.
func (m *Manager) Load(id string) {
	m.flushPending()
	m.generation++
	gen := m.generation
	m.draftDue = time.Time{}
	m.nextAutosave = time.Time{}
	m.loading = true

	records, drafts := m.records, m.drafts
	m.exec.Go(func(ctx context.Context) func() {
		var rec Record
		remoteErr := errors.New("no record requested")
		if id != "" {
			if records == nil {
				remoteErr = errors.New("no sketch store configured")
			} else {
				rec, remoteErr = records.Get(ctx, id, false)
			}
		}
		var d Draft
		draftErr := ErrDraftNotFound
		if remoteErr != nil && drafts != nil {
			d, draftErr = drafts.LoadDraft(ctx, DraftKey(id))
		}
		return func() {
			if gen != m.generation {
				m.log.Debug().Str("id", id).Msg("discarding stale load")
				return
			}
			m.loading = false
			switch {
			case remoteErr == nil:
				m.finishLoad(LoadResult{RecordID: id, Source: LoadedRemote}, rec.State, true)
			case draftErr == nil:
				recordID := id
				if errors.Is(remoteErr, ErrRecordNotFound) {
					recordID = ""
				}
				if id != "" {
					m.log.Warn().Err(remoteErr).Str("id", id).Msg("remote load failed, restored local draft")
				}
				m.finishLoad(LoadResult{RecordID: recordID, Source: LoadedDraft, Err: loadErr(id, remoteErr)}, d.State, false)
			default:
				if id != "" {
					m.log.Warn().Err(remoteErr).Str("id", id).Msg("sketch could not be loaded, starting blank")
				}
				m.resetBlank()
				m.metrics.load("blank")
				m.emitLoad(LoadResult{Source: LoadedBlank, Err: loadErr(id, remoteErr)})
			}
		}
	})
}

func loadErr(id string, err error) error {
	if id == "" {
		return nil
	}
	return err
}

func (m *Manager) finishLoad(res LoadResult, st SketchState, remote bool) {
	m.recordID = res.RecordID
	m.apply(st)
	m.history.Reset(m.scene.Snapshot())
	if remote {
		m.lastHash = StructuralHash(st)
	} else {
		m.lastHash = ""
	}
	m.metrics.load(res.Source.String())
	m.log.Info().Str("id", res.RecordID).Stringer("source", res.Source).Int("features", len(st.Features)).Msg("sketch loaded")
	m.emitLoad(res)
}

func (m *Manager) emitLoad(r LoadResult) {
	if m.onLoad != nil {
		m.onLoad(r)
	}
}

// NewSketch abandons the current sketch: a scheduled draft is written at
// once, in-flight loads and saves are discarded and the scene is cleared.
func (m *Manager) NewSketch() {
	m.generation++
	m.loading = false
	m.resetBlank()
}

func (m *Manager) resetBlank() {
	m.flushPending()
	m.recordID = ""
	m.lastHash = ""
	m.draftDue = time.Time{}
	m.nextAutosave = time.Time{}
	m.applying = true
	m.scene.Reset()
	m.applying = false
	m.history.Reset(m.scene.Snapshot())
}

// apply replaces the scene with st without scheduling a draft.
func (m *Manager) apply(st SketchState) {
	m.applying = true
	ApplyState(m.scene, st)
	m.applying = false
}

// Close stops listening to the scene and flushes a pending draft.
func (m *Manager) Close(ctx context.Context) error {
	err := m.FlushDraft(ctx)
	m.listener.Remove()
	return err
}
