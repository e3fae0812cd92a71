package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a library sync.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchLibrary Phase = iota
	StoreTracks
	SyncComplete
)

func (p Phase) String() string {
	switch p {
	case FetchLibrary:
		return "fetch_library"
	case StoreTracks:
		return "store_tracks"
	case SyncComplete:
		return "sync_complete"
	default:
		return ""
	}
}

func fetchPageUpdate(fetched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("Fetched %d of %d saved tracks...", fetched, total),
	}
}

func storePageUpdate(fetched, total, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreTracks,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("Queued %d new tracks for review", added),
		Data:    added,
	}
}

func syncCompleteUpdate(fetched, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncComplete,
		Step:    fetched,
		Total:   fetched,
		Message: fmt.Sprintf("Synced %d saved tracks (%d new)", fetched, added),
		Data:    added,
	}
}
