package sketchpad

import (
	"context"
	"math"
	"testing"
)

const epsilon = 1e-9

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func testAsset(id string, c Category) FeatureAsset {
	return FeatureAsset{ID: id, Name: id, Category: c, Path: id + ".png"}
}

// addTestFeature places a feature with explicit geometry and z-order.
func addTestFeature(t *testing.T, s *Scene, id string, c Category, r Rect, z int) {
	t.Helper()
	f := featureDefaults()
	f.ID = id
	f.Asset = testAsset(id, c)
	f.X, f.Y, f.Width, f.Height = r.X, r.Y, r.Width, r.Height
	f.ZIndex = z
	if _, err := s.Add(f); err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
}

// manualExecutor queues tasks until run is called, so tests control when
// background work and its completion happen.
type manualExecutor struct {
	tasks []func(ctx context.Context) func()
}

func (e *manualExecutor) Go(task func(ctx context.Context) func()) {
	e.tasks = append(e.tasks, task)
}

// run executes every queued task, including ones queued while running, and
// applies their completions.
func (e *manualExecutor) run() int {
	n := 0
	for len(e.tasks) > 0 {
		task := e.tasks[0]
		e.tasks = e.tasks[1:]
		if done := task(context.Background()); done != nil {
			done()
		}
		n++
	}
	return n
}
