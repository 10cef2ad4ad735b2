package pipeline

// Chunk is a contiguous byte-range slice of a source file, submitted as an
// independent transcription unit.
type Chunk struct {
	Index     int     // 0-based, contiguous
	StartTime float64 // seconds from the start of the source
	Duration  float64 // nominal seconds, uniform across chunks
	Data      []byte
}

// Split cuts data into N = ceil(size/maxChunkBytes) byte ranges of
// near-equal size. The ranges partition data exactly: floor(size/N) bytes
// per chunk with the final chunk absorbing the remainder. Time metadata is
// a uniform estimate (totalDuration/N per chunk); the last chunk's nominal
// duration is not recomputed from its actual byte remainder. Byte-offset
// splitting can land mid-frame, so individual chunks may not decode on
// their own; the batch tolerates that downstream.
//
// A file no larger than maxChunkBytes yields a single chunk holding the
// original bytes.
func Split(data []byte, totalDuration float64, maxChunkBytes int64) []Chunk {
	size := int64(len(data))
	if size == 0 {
		return nil
	}
	if maxChunkBytes <= 0 {
		maxChunkBytes = DefaultSizeThreshold
	}

	n := int((size + maxChunkBytes - 1) / maxChunkBytes)
	if n < 1 {
		n = 1
	}

	chunkBytes := size / int64(n)
	perDuration := totalDuration / float64(n)

	chunks := make([]Chunk, n)
	for i := 0; i < n; i++ {
		start := int64(i) * chunkBytes
		end := start + chunkBytes
		if i == n-1 {
			end = size // last chunk absorbs the remainder
		}
		chunks[i] = Chunk{
			Index:     i,
			StartTime: float64(i) * perDuration,
			Duration:  perDuration,
			Data:      data[start:end],
		}
	}
	return chunks
}
