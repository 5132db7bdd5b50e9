package readiness

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений.
// Пять полей и дескрипторы (@daily, @every 1h); поддерживается префикс CRON_TZ=.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron парсит cron-выражение.
func ParseCron(cronExpr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidCron, cronExpr, err)
	}
	return schedule, nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := ParseCron(cronExpr)
	return err
}

// NextFireTime вычисляет следующее срабатывание строго после from.
func NextFireTime(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := ParseCron(cronExpr)
	if err != nil {
		return time.Time{}, err
	}

	next := schedule.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNoFireTime, cronExpr)
	}
	return next, nil
}
