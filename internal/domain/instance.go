package domain

import (
	"time"

	"github.com/google/uuid"
)

// SchedulerInstance — запись об экземпляре планировщика в общем реестре.
//
// Каждый процесс создаёт ровно одну запись при старте.
// Несколько экземпляров на одном хосте различаются InstanceID.
//
// Жизненный цикл записи:
//
//	Create(primary=false) → SetPrimary(true|false)* → UpdateHeartbeat*
//
// Ядро никогда не удаляет записи.
type SchedulerInstance struct {
	// ID — ключ записи: "hostname:instanceId".
	ID string `json:"id"`

	// Hostname — хост, на котором запущен экземпляр.
	Hostname string `json:"hostname"`

	// InstanceID — сгенерированный UUID процесса.
	InstanceID string `json:"instance_id"`

	// Score — оценка задержки до хранилища (меньше — лучше).
	Score float64 `json:"score"`

	// Primary — флаг активного (ведущего) планировщика.
	Primary bool `json:"primary"`

	// StartedAt — время старта экземпляра.
	StartedAt time.Time `json:"started_at"`

	// LastCheckedIn — время последнего heartbeat.
	// Только для наблюдения, в выборах не используется.
	LastCheckedIn time.Time `json:"last_checked_in"`
}

// NewSchedulerInstance создаёт запись для текущего процесса.
func NewSchedulerInstance(hostname string, score float64, now time.Time) *SchedulerInstance {
	instanceID := uuid.NewString()
	return &SchedulerInstance{
		ID:            InstanceKey(hostname, instanceID),
		Hostname:      hostname,
		InstanceID:    instanceID,
		Score:         score,
		Primary:       false,
		StartedAt:     now,
		LastCheckedIn: now,
	}
}

// InstanceKey строит ключ записи из hostname и instance id.
func InstanceKey(hostname, instanceID string) string {
	return hostname + ":" + instanceID
}

// BetterThan сравнивает кандидатов для выборов.
// Меньший score выигрывает, при равенстве — меньший ID.
func (s *SchedulerInstance) BetterThan(other *SchedulerInstance) bool {
	if s.Score != other.Score {
		return s.Score < other.Score
	}
	return s.ID < other.ID
}
