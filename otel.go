package sketchpad

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/eyedentify/sketchpad"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// persistMetrics counts persistence outcomes. Uses the global OTel meter
// (no-op if not configured).
type persistMetrics struct {
	saves     metric.Int64Counter
	autosaves metric.Int64Counter
	drafts    metric.Int64Counter
	loads     metric.Int64Counter
}

func newPersistMetrics() (*persistMetrics, error) {
	m := meter()
	saves, err := m.Int64Counter("sketchpad.saves",
		metric.WithDescription("Remote saves by result"))
	if err != nil {
		return nil, fmt.Errorf("creating saves counter: %w", err)
	}
	autosaves, err := m.Int64Counter("sketchpad.autosaves",
		metric.WithDescription("Autosave ticks by result (sent, skipped, failed)"))
	if err != nil {
		return nil, fmt.Errorf("creating autosaves counter: %w", err)
	}
	drafts, err := m.Int64Counter("sketchpad.draft_writes",
		metric.WithDescription("Local draft writes by result"))
	if err != nil {
		return nil, fmt.Errorf("creating draft counter: %w", err)
	}
	loads, err := m.Int64Counter("sketchpad.loads",
		metric.WithDescription("Sketch loads by source (remote, draft, blank)"))
	if err != nil {
		return nil, fmt.Errorf("creating loads counter: %w", err)
	}
	return &persistMetrics{saves: saves, autosaves: autosaves, drafts: drafts, loads: loads}, nil
}

func (p *persistMetrics) save(result string) {
	if p != nil {
		addResult(p.saves, result)
	}
}

func (p *persistMetrics) autosave(result string) {
	if p != nil {
		addResult(p.autosaves, result)
	}
}

func (p *persistMetrics) draft(result string) {
	if p != nil {
		addResult(p.drafts, result)
	}
}

func (p *persistMetrics) load(result string) {
	if p != nil {
		addResult(p.loads, result)
	}
}

func addResult(c metric.Int64Counter, result string) {
	c.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}
