package domain

import "time"

// SyncDirection says whether the store file was sent to or fetched from the remote.
type SyncDirection string

// Sync directions.
const (
	SyncPush SyncDirection = "push"
	SyncPull SyncDirection = "pull"
)

// SyncStatus is the outcome of one sync run.
type SyncStatus string

// Sync statuses.
const (
	SyncSucceeded SyncStatus = "succeeded"
	SyncFailed    SyncStatus = "failed"
	SyncSkipped   SyncStatus = "skipped"
)

// RemoteFile is an item listed from a sync remote.
type RemoteFile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsFolder bool      `json:"is_folder"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// SyncRecord is one row of the sync_history table.
type SyncRecord struct {
	ID         string        `json:"id"`
	Direction  SyncDirection `json:"direction"`
	Backend    string        `json:"backend"`
	RemotePath string        `json:"remote_path"`
	RemoteID   string        `json:"remote_id,omitempty"`
	Bytes      int64         `json:"bytes"`
	Status     SyncStatus    `json:"status"`
	Message    string        `json:"message,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
