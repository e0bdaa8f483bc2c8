package entities

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunCounters are the totals of a finished or interrupted import.
type RunCounters struct {
	Notebooks         int `json:"notebooks"`
	Sections          int `json:"sections"`
	Notes             int `json:"notes"`
	TagsLinked        int `json:"tags_linked"`
	TagsSkipped       int `json:"tags_skipped"`
	ResourcesUploaded int `json:"resources_uploaded"`
	ResourcesReused   int `json:"resources_reused"`
	Warnings          int `json:"warnings"`
}

// ImportRun is one execution of the import command.
type ImportRun struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	Archive        string      `gorm:"size:1024" json:"archive"`
	InsertionPoint string      `gorm:"size:512" json:"insertion_point"`
	Status         RunStatus   `gorm:"index;size:20;default:'running'" json:"status"`
	Counters       RunCounters `gorm:"embedded" json:"counters"`
	Error          string      `gorm:"type:text" json:"error,omitempty"`
	StartedAt      time.Time   `gorm:"index" json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}

type EventKind string

const (
	EventFolder           EventKind = "folder"
	EventNote             EventKind = "note"
	EventTagLink          EventKind = "tag_link"
	EventTagSkipped       EventKind = "tag_skipped"
	EventResourceUploaded EventKind = "resource_uploaded"
	EventResourceReused   EventKind = "resource_reused"
	EventWarning          EventKind = "warning"
)

// ImportEvent records one item written to the note store, or a warning raised
// while importing.
type ImportEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"index;size:36" json:"run_id"`
	Kind      EventKind `gorm:"index;size:30" json:"kind"`
	Location  string    `gorm:"size:512" json:"location,omitempty"` // archive location of the note
	Title     string    `gorm:"size:1024" json:"title,omitempty"`
	RemoteID  string    `gorm:"size:64" json:"remote_id,omitempty"`
	Message   string    `gorm:"type:text" json:"message,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (ImportEvent) TableName() string {
	return "import_events"
}
