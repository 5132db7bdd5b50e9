package redisstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shaiso/exosphere/internal/domain"
)

func instanceToMap(inst *domain.SchedulerInstance) map[string]any {
	return map[string]any{
		"id":              inst.ID,
		"hostname":        inst.Hostname,
		"instance_id":     inst.InstanceID,
		"score":           strconv.FormatFloat(inst.Score, 'g', -1, 64),
		"primary":         formatBool(inst.Primary),
		"started_at":      inst.StartedAt.UTC().Format(time.RFC3339Nano),
		"last_checked_in": inst.LastCheckedIn.UTC().Format(time.RFC3339Nano),
	}
}

func mapToInstance(vals map[string]string) (*domain.SchedulerInstance, error) {
	score, err := strconv.ParseFloat(vals["score"], 64)
	if err != nil {
		return nil, fmt.Errorf("parse score: %w", err)
	}
	startedAt, err := time.Parse(time.RFC3339Nano, vals["started_at"])
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	lastCheckedIn, err := time.Parse(time.RFC3339Nano, vals["last_checked_in"])
	if err != nil {
		return nil, fmt.Errorf("parse last_checked_in: %w", err)
	}

	return &domain.SchedulerInstance{
		ID:            vals["id"],
		Hostname:      vals["hostname"],
		InstanceID:    vals["instance_id"],
		Score:         score,
		Primary:       vals["primary"] == "1",
		StartedAt:     startedAt.UTC(),
		LastCheckedIn: lastCheckedIn.UTC(),
	}, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// encodeJobDefinition сериализует job без LastReportDate.
func encodeJobDefinition(job *domain.JobDefinition) (string, error) {
	definition := *job
	definition.LastReportDate = nil
	raw, err := json.Marshal(definition)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func mapToJob(vals map[string]string) (*domain.JobDefinition, error) {
	var job domain.JobDefinition
	if err := json.Unmarshal([]byte(vals[jobFieldDefinition]), &job); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	if raw := vals[jobFieldLastReport]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse last_report_date: %w", err)
		}
		t = t.UTC()
		job.LastReportDate = &t
	}
	return &job, nil
}
