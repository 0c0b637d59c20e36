// Package measure implements the one-way latency measurement engine (C2):
// a sliding window of probe samples per ordered (source, destination) pair,
// the derived latency/jitter/loss metrics, peer liveness, and the helpers
// that build and verify HMAC-authenticated probes. The send/receive loops
// themselves live in internal/node.
package measure

import (
	"math"
	"time"

	"ddarpd/internal/model"
)

// WindowCap is the ring buffer size per ordered pair (spec.md §5 resource caps).
const WindowCap = 100

// MinSamplesForEdge is K: EdgeMetrics.Usable reports false for a window
// holding fewer samples than this. topology.Store.PathSearchEdges does not
// apply it, so an edge with fewer samples is still path-search input.
const MinSamplesForEdge = 3

// Window is a fixed-capacity ring buffer of ProbeSamples for one ordered
// pair, plus its derived EdgeMetrics. Not safe for concurrent use; callers
// serialize per-pair access (one writer per ordered pair, per spec.md §5).
type Window struct {
	samples []model.ProbeSample
	next    int
	full    bool
}

// NewWindow returns an empty window.
func NewWindow() *Window {
	return &Window{samples: make([]model.ProbeSample, 0, WindowCap)}
}

// Insert appends a sample, evicting the oldest once the ring is full, and
// returns the freshly recomputed EdgeMetrics.
func (w *Window) Insert(s model.ProbeSample) model.EdgeMetrics {
	if len(w.samples) < WindowCap {
		w.samples = append(w.samples, s)
	} else {
		w.samples[w.next] = s
		w.next = (w.next + 1) % WindowCap
		w.full = true
	}
	return w.metrics(s.RecvTs)
}

// Len reports the number of samples currently held.
func (w *Window) Len() int { return len(w.samples) }

func (w *Window) metrics(now time.Time) model.EdgeMetrics {
	n := len(w.samples)
	if n == 0 {
		return model.EdgeMetrics{}
	}

	var sum float64
	minSeq, maxSeq := w.samples[0].Seq, w.samples[0].Seq
	for _, s := range w.samples {
		sum += s.OneWayLatencyMs()
		if s.Seq < minSeq {
			minSeq = s.Seq
		}
		if s.Seq > maxSeq {
			maxSeq = s.Seq
		}
	}
	mean := sum / float64(n)

	var sumSq float64
	for _, s := range w.samples {
		d := s.OneWayLatencyMs() - mean
		sumSq += d * d
	}
	jitter := 0.0
	if n > 1 {
		jitter = math.Sqrt(sumSq / float64(n-1))
	}

	expected := int(maxSeq-minSeq) + 1
	loss := 0.0
	if expected > n {
		loss = 1 - float64(n)/float64(expected)
	}

	return model.EdgeMetrics{
		LatencyMs:     mean,
		JitterMs:      jitter,
		LossRatio:     loss,
		LastUpdatedTs: now,
		SampleCount:   n,
	}
}
