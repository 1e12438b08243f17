package api

import (
	"encoding/json"

	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobStatus is the polling view of a job.
type JobStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// Job describes a stored job.
type Job struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	Progress     int                `json:"progress"`
	Stage        string             `json:"stage,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	ErrorKind    string             `json:"errorKind,omitempty"`
	OutputPath   string             `json:"outputPath,omitempty"`
	Attempts     int                `json:"attempts"`
	SceneCount   int                `json:"sceneCount,omitempty"`
	CreatedAt    string             `json:"createdAt,omitempty"`
	UpdatedAt    string             `json:"updatedAt,omitempty"`
	Scenes       []scene.Scene      `json:"scenes,omitempty"`
	Config       *renderspec.Config `json:"config,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// SubmitRequest is the body of a new job or plan request. Config holds
// render options layered over the daemon defaults.
type SubmitRequest struct {
	Scenes []scene.Scene   `json:"scenes"`
	Config json.RawMessage `json:"config,omitempty"`
}

// SubmitResponse carries the id of an accepted job.
type SubmitResponse struct {
	ID string `json:"id"`
}

// EditRequest replaces a job's scenes.
type EditRequest struct {
	Scenes []scene.Scene `json:"scenes"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes the render queue.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Workers     int            `json:"workers"`
	QueueDepth  int            `json:"queueDepth"`
	InFlight    []string       `json:"inFlight"`
	Retrying    []string       `json:"retrying"`
	QueueStats  map[string]int `json:"queueStats"`
	StageHealth []StageHealth  `json:"stageHealth"`
	LastError   string         `json:"lastError,omitempty"`
	LastJobID   string         `json:"lastJobId,omitempty"`
}

// DatabaseStatus reports job database health.
type DatabaseStatus struct {
	Path          string `json:"path"`
	SchemaVersion int    `json:"schemaVersion"`
	Integrity     bool   `json:"integrity"`
	TotalJobs     int    `json:"totalJobs"`
	Error         string `json:"error,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running  bool           `json:"running"`
	PID      int            `json:"pid"`
	Bind     string         `json:"bind"`
	LockPath string         `json:"lockPath"`
	Database DatabaseStatus `json:"database"`
	Workflow WorkflowStatus `json:"workflow"`
}

// PlanSegment is one scene's span on the frame grid.
type PlanSegment struct {
	SceneIndex     int     `json:"sceneIndex"`
	StartFrame     int     `json:"startFrame"`
	DurationFrames int     `json:"durationFrames"`
	StartSec       float64 `json:"startSec"`
	DurationSec    float64 `json:"durationSec"`
}

// PlanCue is a caption page on the absolute output timeline.
type PlanCue struct {
	SceneIndex int    `json:"sceneIndex"`
	StartMs    int64  `json:"startMs"`
	EndMs      int64  `json:"endMs"`
	Text       string `json:"text"`
}

// PlanPreview is the compiled timeline for a script.
type PlanPreview struct {
	FPS            int           `json:"fps"`
	TotalFrames    int           `json:"totalFrames"`
	DurationSec    float64       `json:"durationSec"`
	PaddingFrames  int           `json:"paddingFrames"`
	FadeStartFrame int           `json:"fadeStartFrame"`
	Segments       []PlanSegment `json:"segments"`
	Cues           []PlanCue     `json:"cues"`
}

// Voice is one narration voice.
type Voice struct {
	Name     string `json:"name"`
	Engine   string `json:"engine"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
}

// VoiceListResponse wraps the voice catalog.
type VoiceListResponse struct {
	Voices []Voice `json:"voices"`
	Source string  `json:"source"`
}

// ClearResponse reports how many finished jobs were removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
