package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
)

const jobColumns = "id, status, scenes_json, config_json, progress, stage, error_message, error_kind, output_path, attempts, version, created_at, updated_at"

const summaryColumns = "id, status, progress, stage, error_message, error_kind, output_path, attempts, created_at, updated_at"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads a full row. Scalar columns are always populated; when the
// scenes or config JSON fail to decode the partially filled job is returned
// together with an ErrDataCorruption error.
func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job        Job
		status     string
		scenesRaw  string
		configRaw  string
		errorKind  string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&job.ID,
		&status,
		&scenesRaw,
		&configRaw,
		&job.Progress,
		&job.Stage,
		&job.ErrorMessage,
		&errorKind,
		&job.OutputPath,
		&job.Attempts,
		&job.Version,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.ErrorKind = services.Kind(errorKind)
	job.CreatedAt = parseTime(createdRaw)
	job.UpdatedAt = parseTime(updatedRaw)

	scenes, err := decodeScenes(scenesRaw)
	if err != nil {
		return &job, services.Wrap(services.ErrDataCorruption, "store", "decode scenes", fmt.Sprintf("job %s", job.ID), err)
	}
	job.Scenes = scenes

	cfg, err := decodeConfig(configRaw)
	if err != nil {
		return &job, services.Wrap(services.ErrDataCorruption, "store", "decode config", fmt.Sprintf("job %s", job.ID), err)
	}
	job.Config = cfg
	return &job, nil
}

func scanSummary(scanner rowScanner) (Summary, error) {
	var (
		summary    Summary
		status     string
		errorKind  string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&summary.ID,
		&status,
		&summary.Progress,
		&summary.Stage,
		&summary.ErrorMessage,
		&errorKind,
		&summary.OutputPath,
		&summary.Attempts,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return Summary{}, err
	}
	summary.Status = Status(status)
	summary.ErrorKind = services.Kind(errorKind)
	summary.CreatedAt = parseTime(createdRaw)
	summary.UpdatedAt = parseTime(updatedRaw)
	return summary, nil
}

func decodeScenes(raw string) ([]scene.Scene, error) {
	var scenes []scene.Scene
	if err := json.Unmarshal([]byte(raw), &scenes); err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes stored")
	}
	for i, s := range scenes {
		if err := scene.ValidateWords(s.CaptionWords); err != nil {
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}
	}
	return scenes, nil
}

func decodeConfig(raw string) (renderspec.Config, error) {
	var cfg renderspec.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return renderspec.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return renderspec.Config{}, err
	}
	return cfg, nil
}

func encodeJob(job *Job) (string, string, error) {
	scenesJSON, err := json.Marshal(job.Scenes)
	if err != nil {
		return "", "", fmt.Errorf("encode scenes: %w", err)
	}
	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return "", "", fmt.Errorf("encode config: %w", err)
	}
	return string(scenesJSON), string(configJSON), nil
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
