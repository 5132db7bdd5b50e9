package scheduler

import (
	"fmt"
	"time"
)

// Path — каким путём job стал готов.
type Path string

const (
	PathCron    Path = "cron"
	PathTrigger Path = "trigger"
)

// ScheduledJob — job, переданный в очередь.
type ScheduledJob struct {
	Name string `json:"name"`
	Path Path   `json:"path"`

	// Delay — через сколько исполнитель должен запустить job.
	Delay time.Duration `json:"delay"`

	// DueAt — слот расписания, который закрывает эта публикация.
	DueAt time.Time `json:"due_at"`

	// IdempotencyKey — "{name}_{path}_{due_unix}".
	IdempotencyKey string `json:"idempotency_key"`
}

// IdempotencyKey формирует ключ: для одного job, пути и слота
// публикация выполняется один раз.
func IdempotencyKey(name string, path Path, dueAt time.Time) string {
	return fmt.Sprintf("%s_%s_%d", name, path, dueAt.Unix())
}
