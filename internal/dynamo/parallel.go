package dynamo

// Chunk is a half-open index range [Start, End).
type Chunk struct {
	Start, End int
}

// Partition splits [0, n) into at most workers contiguous chunks of at least
// minChunk elements. It always returns at least one chunk when n > 0.
func Partition(n, workers, minChunk int) []Chunk {
	if n <= 0 {
		return nil
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if workers < 1 || n <= minChunk {
		workers = 1
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers
	chunks := make([]Chunk, 0, workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{Start: start, End: end})
	}
	return chunks
}
