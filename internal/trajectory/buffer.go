package trajectory

import "github.com/GCS-LG/walking-controllers/internal/wverr"

// Buffer is the FIFO reference-sample deque. The front of the buffer is
// "now". Buffer is not safe for concurrent use; the tick
// orchestrator owns it under its exclusive lock.
type Buffer struct {
	samples []Sample
}

// NewBuffer creates a buffer pre-filled with n copies of hold, used when
// "prepare" first creates buffers so the robot does not move (
// Lifecycles).
func NewBuffer(hold Sample, n int) *Buffer {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = hold
	}
	return &Buffer{samples: samples}
}

// Len returns the buffer length.
func (b *Buffer) Len() int { return len(b.samples) }

// Front returns the current ("now") sample.
func (b *Buffer) Front() Sample { return b.samples[0] }

// At returns the sample at the given offset from "now".
func (b *Buffer) At(offset int) Sample { return b.samples[offset] }

// Advance pops one sample from the front and appends a copy of the back,
// implementing the "hold last value past the planned horizon" rule that
// advanceReferenceSignals relies on.
func (b *Buffer) Advance() {
	last := b.samples[len(b.samples)-1]
	b.samples = append(b.samples[1:], last)
}

// Splice discards the tail from offset onward and appends newSuffix,
// implementing the merge-point splice of : "the older tail is
// discarded, new suffix appended". The resulting buffer keeps its
// original length: if the spliced tail is shorter or longer than what was
// discarded, the buffer is re-padded/truncated by holding the last sample
// of newSuffix, preserving the invariant that all buffers share one
// length.
func (b *Buffer) Splice(offset int, newSuffix []Sample) error {
	if offset < 0 || offset >= len(b.samples) {
		return wverr.New(wverr.KindPlannerMiss, "splice offset out of range")
	}
	if len(newSuffix) == 0 {
		return wverr.New(wverr.KindPlannerMiss, "empty replanned suffix")
	}

	targetLen := len(b.samples)
	out := make([]Sample, 0, targetLen)
	out = append(out, b.samples[:offset]...)
	out = append(out, newSuffix...)

	if len(out) < targetLen {
		last := out[len(out)-1]
		for len(out) < targetLen {
			out = append(out, last)
		}
	} else if len(out) > targetLen {
		out = out[:targetLen]
	}

	b.samples = out
	return nil
}

// Samples returns the underlying sample slice for read-only iteration.
func (b *Buffer) Samples() []Sample { return b.samples }
