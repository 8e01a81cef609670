package sketchpad

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// scriptStep is a single action of a replay script.
type scriptStep struct {
	Action string  `yaml:"action"`
	Label  string  `yaml:"label,omitempty"`
	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`
	FromX  float64 `yaml:"fromX,omitempty"`
	FromY  float64 `yaml:"fromY,omitempty"`
	ToX    float64 `yaml:"toX,omitempty"`
	ToY    float64 `yaml:"toY,omitempty"`
	Frames int     `yaml:"frames,omitempty"`

	Key  string   `yaml:"key,omitempty"`
	Mods []string `yaml:"mods,omitempty"`

	// place
	Asset   *FeatureAsset `yaml:"asset,omitempty"`
	AssetID string        `yaml:"assetId,omitempty"`
	Drop    bool          `yaml:"drop,omitempty"`

	Zoom float64 `yaml:"zoom,omitempty"`
}

// replayScript is the top-level document. JSON documents parse as well.
type replayScript struct {
	Steps []scriptStep `yaml:"steps"`
}

var scriptActions = map[string]bool{
	"click": true, "drag": true, "key": true, "place": true, "wait": true,
	"screenshot": true, "undo": true, "redo": true, "zoom": true,
}

// ScriptRunner sequences injected input, commands and screenshots across
// frames. Attach to an Editor with SetScript.
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
	errs      []error
}

// LoadScript parses a YAML or JSON replay script.
func LoadScript(data []byte) (*ScriptRunner, error) {
	var script replayScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range script.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i+1, st.Action)
		}
		if st.Action == "key" && ParseKey(strings.ToLower(st.Key)) == KeyUnknown {
			return nil, fmt.Errorf("parse script: step %d: unknown key %q", i+1, st.Key)
		}
		if st.Action == "place" && st.Asset == nil && st.AssetID == "" {
			return nil, fmt.Errorf("parse script: step %d: place needs asset or assetId", i+1)
		}
	}
	return &ScriptRunner{steps: script.Steps}, nil
}

// Done reports whether every step has run.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// Errors returns the failures of steps that could not run.
func (r *ScriptRunner) Errors() []error {
	return r.errs
}

func parseMods(names []string) KeyModifiers {
	var m KeyModifiers
	for _, n := range names {
		switch strings.ToLower(n) {
		case "shift":
			m |= ModShift
		case "ctrl", "control":
			m |= ModCtrl
		case "alt", "option":
			m |= ModAlt
		case "meta", "cmd", "command":
			m |= ModMeta
		}
	}
	return m
}

// step advances the runner by one frame. Called from Editor.Update.
func (r *ScriptRunner) step(e *Editor) {
	if r.done {
		return
	}
	// Wait for injected input to drain before advancing.
	if len(e.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "screenshot":
		e.Screenshot(st.Label)
	case "click":
		e.InjectClick(st.X, st.Y, parseMods(st.Mods))
	case "drag":
		e.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "key":
		e.HandleKey(ParseKey(strings.ToLower(st.Key)), parseMods(st.Mods))
	case "undo":
		e.Undo()
	case "redo":
		e.Redo()
	case "zoom":
		e.scene.SetZoom(st.Zoom)
	case "place":
		r.place(e, st)
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(e.injectQueue) == 0 {
		r.done = true
	}
}

func (r *ScriptRunner) place(e *Editor, st scriptStep) {
	var asset FeatureAsset
	if st.Asset != nil {
		asset = *st.Asset
	} else {
		found := false
		if e.catalog != nil {
			for _, a := range e.catalog.Cached() {
				if a.ID == st.AssetID {
					asset, found = a, true
					break
				}
			}
		}
		if !found {
			r.errs = append(r.errs, fmt.Errorf("step %d: asset %q not in catalog", r.cursor, st.AssetID))
			return
		}
	}
	if st.Drop {
		e.DropAsset(asset, st.X, st.Y)
		return
	}
	e.PlaceAsset(asset)
}
