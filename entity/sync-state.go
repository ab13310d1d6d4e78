package entity

import "time"

const (
	SyncDisconnected = "disconnected"
	SyncIdle         = "idle"
	SyncSyncing      = "syncing"
	SyncErrored      = "error"
)

// Sync outcomes reported to callers. Conflicts are results, not errors.
const (
	SyncCompleted      = "completed"
	SyncNotConnected   = "not_connected"
	SyncAlreadyRunning = "already_in_progress"
	SyncFailed         = "failed"
)

// SyncState tracks one (tenant, platform) connection. InProgress is the
// cross-process mutual-exclusion guard; it must only flip via a compare-and-set
// at the store layer.
type SyncState struct {
	Tenant            string    `json:"tenant" bson:"tenant"`
	Platform          string    `json:"platform" bson:"platform"`
	Status            string    `json:"status" bson:"status"`
	InProgress        bool      `json:"in_progress" bson:"in_progress"`
	LastSyncAt        time.Time `json:"last_sync_at" bson:"last_sync_at"`
	Cursor            string    `json:"cursor" bson:"cursor"`
	LastError         string    `json:"last_error" bson:"last_error"`
	ConsecutiveErrors int       `json:"consecutive_errors" bson:"consecutive_errors"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at"`
}

// SyncReport summarizes one sync attempt.
type SyncReport struct {
	Outcome       string   `json:"outcome"`
	Processed     int      `json:"processed"`
	NewMessages   int      `json:"new_messages"`
	Duplicates    int      `json:"duplicates"`
	Conversations int      `json:"conversations"`
	HasMore       bool     `json:"has_more"`
	Errors        []string `json:"errors,omitempty"`
}

// IngestReport summarizes one ingestion batch.
type IngestReport struct {
	Processed     int      `json:"processed"`
	NewMessages   int      `json:"new_messages"`
	Duplicates    int      `json:"duplicates"`
	Conversations int      `json:"conversations"`
	Errors        []string `json:"errors,omitempty"`
}
