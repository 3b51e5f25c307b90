package reservoir

import (
	"slices"
	"testing"
)

func TestRecordBelowCapacityKeepsEverySample(t *testing.T) {
	testCases := [][]uint64{
		{},
		{42},
		{5, 3, 9, 3, 1},
		{1, 2, 3, 4, 5, 6, 7, 8},
	}

	for _, input := range testCases {
		r := New(8, 1)
		for _, v := range input {
			r.Record(v)
		}

		if r.Seen() != uint64(len(input)) {
			t.Errorf("seen mismatch: expected %d, got %d", len(input), r.Seen())
		}
		if r.Len() != len(input) {
			t.Errorf("len mismatch: expected %d, got %d", len(input), r.Len())
		}

		got := make([]uint64, r.Cap())
		got = got[:r.CopyInto(got)]
		want := slices.Clone(input)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Errorf("contents mismatch: expected %v, got %v", want, got)
		}
	}
}

func TestRecordAboveCapacityOverwrites(t *testing.T) {
	const k = 16
	for _, n := range []int{17, 100, 10_000} {
		r := New(k, uint64(n))
		recorded := make(map[uint64]bool, n)
		for i := 0; i < n; i++ {
			v := uint64(i*3 + 1)
			recorded[v] = true
			r.Record(v)
		}

		if r.Seen() != uint64(n) {
			t.Errorf("n=%d: expected seen %d, got %d", n, n, r.Seen())
		}
		if r.Len() != k {
			t.Errorf("n=%d: expected %d valid slots, got %d", n, k, r.Len())
		}

		got := make([]uint64, 2*k)
		copied := r.CopyInto(got)
		if copied != k {
			t.Fatalf("n=%d: expected %d copied, got %d", n, k, copied)
		}
		for _, v := range got[:copied] {
			if !recorded[v] {
				t.Errorf("n=%d: reservoir holds %d which was never recorded", n, v)
			}
		}
	}
}

func TestReplacementReachesEverySlot(t *testing.T) {
	const k = 4
	r := New(k, 7)
	for i := 0; i < k; i++ {
		r.Record(0)
	}
	for i := 0; i < 1000; i++ {
		r.Record(1)
	}

	got := make([]uint64, k)
	r.CopyInto(got)
	for i, v := range got {
		if v != 1 {
			t.Errorf("slot %d never overwritten after 1000 replacements", i)
		}
	}
}

func TestCopyIntoRespectsDestination(t *testing.T) {
	r := New(10, 1)
	for i := 0; i < 6; i++ {
		r.Record(uint64(i))
	}

	dst := make([]uint64, 4)
	if n := r.CopyInto(dst); n != 4 {
		t.Errorf("expected copy bounded by dst (4), got %d", n)
	}
	if !slices.Equal(dst, []uint64{0, 1, 2, 3}) {
		t.Errorf("expected leading slots, got %v", dst)
	}

	if n := r.CopyInto(nil); n != 0 {
		t.Errorf("expected 0 copied into nil, got %d", n)
	}
}

func TestZeroCapacity(t *testing.T) {
	r := New(0, 1)
	r.Record(5)
	r.Record(6)
	if r.Seen() != 2 || r.Len() != 0 {
		t.Errorf("expected seen=2 len=0, got seen=%d len=%d", r.Seen(), r.Len())
	}
}

func BenchmarkRecord(b *testing.B) {
	r := New(100_000, 1)
	for i := 0; i < b.N; i++ {
		r.Record(uint64(i))
	}
}
