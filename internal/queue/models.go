package queue

import (
	"time"

	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
)

// Status represents the lifecycle of a render job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusReady,
	StatusFailed,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a user supplied string into a Status.
func ParseStatus(value string) (Status, bool) {
	for _, status := range allStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// Terminal reports whether no worker will touch a job in this status again
// without an explicit edit or retry.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Job is one render request persisted in SQLite.
type Job struct {
	ID           string
	Status       Status
	Scenes       []scene.Scene
	Config       renderspec.Config
	Progress     int
	Stage        string
	ErrorMessage string
	ErrorKind    services.Kind
	OutputPath   string
	Attempts     int
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Scenes = scene.CloneAll(j.Scenes)
	return &out
}

// Summary is the list view of a job. It is read without decoding scenes so a
// corrupt row still shows up.
type Summary struct {
	ID           string
	Status       Status
	Progress     int
	Stage        string
	ErrorMessage string
	ErrorKind    services.Kind
	OutputPath   string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
