package constants

// Event types published on the library event bus.
const (
	EventScanCompleted  = "library.scan.completed"
	EventScanFailed     = "library.scan.failed"
	EventEntryCreated   = "library.entry.created"
	EventEpisodesPruned = "library.episodes.pruned"
)

const (
	// MaxLoggedUnmatched caps the unmatched paths listed in the run summary.
	MaxLoggedUnmatched = 10

	// MaxEpisodeNumber bounds digit runs accepted as episode numbers.
	MaxEpisodeNumber = 9999
)
