package trajectory

import "testing"

func holdSample(x float64) Sample {
	return Sample{DesiredZMP: [2]float64{x, 0}}
}

func TestNewBufferFillsWithHoldSample(t *testing.T) {
	b := NewBuffer(holdSample(1), 5)
	if b.Len() != 5 {
		t.Fatalf("expected length 5, got %d", b.Len())
	}
	for i := 0; i < b.Len(); i++ {
		if b.At(i).DesiredZMP[0] != 1 {
			t.Fatalf("sample %d not seeded from hold value: %v", i, b.At(i))
		}
	}
}

func TestAdvancePopsFrontAndHoldsLastValue(t *testing.T) {
	b := &Buffer{samples: []Sample{holdSample(0), holdSample(1), holdSample(2)}}
	b.Advance()
	if b.Len() != 3 {
		t.Fatalf("expected length to stay 3, got %d", b.Len())
	}
	if b.Front().DesiredZMP[0] != 1 {
		t.Fatalf("expected front to be the old second sample, got %v", b.Front())
	}
	if b.At(2).DesiredZMP[0] != 2 {
		t.Fatalf("expected the back to duplicate the old last sample, got %v", b.At(2))
	}
}

func TestSpliceDiscardsTailAndAppendsSuffix(t *testing.T) {
	b := &Buffer{samples: []Sample{holdSample(0), holdSample(1), holdSample(2), holdSample(3), holdSample(4)}}
	newSuffix := []Sample{holdSample(10), holdSample(11)}

	if err := b.Splice(3, newSuffix); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Len() != 5 {
		t.Fatalf("expected length preserved at 5, got %d", b.Len())
	}
	want := []float64{0, 1, 2, 10, 11}
	for i, w := range want {
		if got := b.At(i).DesiredZMP[0]; got != w {
			t.Fatalf("sample %d: want %v got %v", i, w, got)
		}
	}
}

func TestSpliceShorterSuffixHoldsLastValue(t *testing.T) {
	b := &Buffer{samples: []Sample{holdSample(0), holdSample(1), holdSample(2), holdSample(3)}}
	if err := b.Splice(2, []Sample{holdSample(9)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Len() != 4 {
		t.Fatalf("expected length preserved at 4, got %d", b.Len())
	}
	want := []float64{0, 1, 9, 9}
	for i, w := range want {
		if got := b.At(i).DesiredZMP[0]; got != w {
			t.Fatalf("sample %d: want %v got %v", i, w, got)
		}
	}
}

func TestSpliceRejectsOutOfRangeOffset(t *testing.T) {
	b := NewBuffer(holdSample(0), 3)
	if err := b.Splice(-1, []Sample{holdSample(1)}); err == nil {
		t.Fatalf("expected error for negative offset")
	}
	if err := b.Splice(3, []Sample{holdSample(1)}); err == nil {
		t.Fatalf("expected error for offset == buffer length")
	}
}

func TestSpliceRejectsEmptySuffix(t *testing.T) {
	b := NewBuffer(holdSample(0), 3)
	if err := b.Splice(1, nil); err == nil {
		t.Fatalf("expected error for empty replanned suffix")
	}
}
