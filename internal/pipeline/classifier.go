package pipeline

// Route is the transcription path chosen for a file.
type Route string

const (
	// RouteDirect submits the file in a single remote call.
	RouteDirect Route = "direct"

	// RouteOversized means the file exceeds the per-request limit and must
	// be compressed or chunked before submission.
	RouteOversized Route = "oversized"

	// RouteCompressed and RouteChunked are the resolved oversized paths,
	// reported in results and metrics once the pipeline has committed.
	RouteCompressed Route = "compressed"
	RouteChunked    Route = "chunked"
)

// DefaultSizeThreshold is the remote endpoint's per-request limit (25 MiB).
const DefaultSizeThreshold int64 = 25 << 20

// Classify decides whether a file of sizeBytes needs special handling.
// threshold <= 0 selects DefaultSizeThreshold. Pure: no side effects and
// no failure mode.
func Classify(sizeBytes, threshold int64) Route {
	if threshold <= 0 {
		threshold = DefaultSizeThreshold
	}
	if sizeBytes > threshold {
		return RouteOversized
	}
	return RouteDirect
}
