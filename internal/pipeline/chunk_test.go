package pipeline

import (
	"bytes"
	"testing"
)

func TestSplit_ExactPartition(t *testing.T) {
	tests := []struct {
		name          string
		size          int
		maxChunk      int64
		wantN         int
		wantSizes     []int
	}{
		{"single_chunk_noop", 100, 1000, 1, []int{100}},
		{"exact_boundary", 1000, 1000, 1, []int{1000}},
		{"one_over_boundary", 1001, 1000, 2, []int{500, 501}},
		{"remainder_to_last", 10, 4, 3, []int{3, 3, 4}},
		{"sixty_mb_at_25mb", 60 << 20, 25 << 20, 3, []int{20 << 20, 20 << 20, 20 << 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.size)
			for i := range data {
				data[i] = byte(i)
			}

			chunks := Split(data, 300, tt.maxChunk)
			if len(chunks) != tt.wantN {
				t.Fatalf("got %d chunks, want %d", len(chunks), tt.wantN)
			}

			total := 0
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunk %d has index %d", i, c.Index)
				}
				if len(c.Data) != tt.wantSizes[i] {
					t.Errorf("chunk %d size = %d, want %d", i, len(c.Data), tt.wantSizes[i])
				}
				total += len(c.Data)
			}
			if total != tt.size {
				t.Errorf("payload sum = %d, want %d", total, tt.size)
			}

			// Byte partition must be exact: reassembly equals the original.
			var buf bytes.Buffer
			for _, c := range chunks {
				buf.Write(c.Data)
			}
			if !bytes.Equal(buf.Bytes(), data) {
				t.Error("reassembled chunks differ from original data")
			}
		})
	}
}

func TestSplit_TimeMetadata(t *testing.T) {
	data := make([]byte, 10)
	chunks := Split(data, 300, 4) // N = 3

	perDur := 100.0
	last := -1.0
	for i, c := range chunks {
		if c.Duration != perDur {
			t.Errorf("chunk %d duration = %v, want %v", i, c.Duration, perDur)
		}
		if want := float64(i) * perDur; c.StartTime != want {
			t.Errorf("chunk %d startTime = %v, want %v", i, c.StartTime, want)
		}
		if c.StartTime <= last {
			t.Errorf("chunk %d startTime %v not strictly increasing", i, c.StartTime)
		}
		last = c.StartTime
	}
}

func TestSplit_SingleChunkIsOriginal(t *testing.T) {
	data := []byte("small file")
	chunks := Split(data, 5, 1000)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if !bytes.Equal(chunks[0].Data, data) {
		t.Error("single chunk should hold the original bytes")
	}
	if chunks[0].StartTime != 0 || chunks[0].Duration != 5 {
		t.Errorf("single chunk time = (%v, %v), want (0, 5)", chunks[0].StartTime, chunks[0].Duration)
	}
}

func TestSplit_Empty(t *testing.T) {
	if chunks := Split(nil, 10, 1000); chunks != nil {
		t.Errorf("Split(nil) = %v, want nil", chunks)
	}
}

func TestSplit_ManySizes(t *testing.T) {
	// Partition property across a spread of sizes and limits.
	for _, size := range []int{1, 2, 999, 1000, 1001, 4096, 99999} {
		for _, max := range []int64{1, 7, 1000, 4096} {
			data := make([]byte, size)
			chunks := Split(data, 60, max)

			wantN := (size + int(max) - 1) / int(max)
			if len(chunks) != wantN {
				t.Fatalf("size=%d max=%d: got %d chunks, want %d", size, max, len(chunks), wantN)
			}
			total := 0
			for i, c := range chunks {
				if c.Index != i {
					t.Fatalf("size=%d max=%d: chunk %d has index %d", size, max, i, c.Index)
				}
				total += len(c.Data)
			}
			if total != size {
				t.Fatalf("size=%d max=%d: payload sum = %d", size, max, total)
			}
		}
	}
}
