package readiness

import (
	"fmt"
	"time"

	"github.com/shaiso/exosphere/internal/domain"
)

// AddInterval прибавляет интервал trigger к t.
//
// Месяцы считаются по календарю: день месяца сохраняется, а если
// в целевом месяце его нет — берётся последний день
// (31 января + 1 месяц = 28 или 29 февраля).
// Остальные единицы — фиксированные длительности.
func AddInterval(t time.Time, trigger domain.Trigger) (time.Time, error) {
	if trigger.Value <= 0 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidTrigger, trigger.Value)
	}

	n := trigger.Value
	switch trigger.Unit {
	case domain.TriggerUnitMonths:
		return addMonths(t, n), nil
	case domain.TriggerUnitWeeks:
		return t.Add(time.Duration(n) * 7 * 24 * time.Hour), nil
	case domain.TriggerUnitDays:
		return t.Add(time.Duration(n) * 24 * time.Hour), nil
	case domain.TriggerUnitHours:
		return t.Add(time.Duration(n) * time.Hour), nil
	case domain.TriggerUnitMinutes:
		return t.Add(time.Duration(n) * time.Minute), nil
	case domain.TriggerUnitSeconds:
		return t.Add(time.Duration(n) * time.Second), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedUnit, trigger.Unit)
	}
}

// addMonths прибавляет n календарных месяцев с обрезкой дня
// до конца целевого месяца. time.AddDate так не делает:
// 31 января + 1 месяц у него 2 или 3 марта.
func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	first := time.Date(year, month+time.Month(n), 1, hour, minute, sec, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// daysIn возвращает количество дней в месяце.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// NextReportDate — следующая дата отчёта trigger-job:
// LastReportDate + интервал.
func NextReportDate(job *domain.JobDefinition) (time.Time, error) {
	if !job.IsTrigger() {
		return time.Time{}, ErrNoTrigger
	}
	if job.LastReportDate == nil {
		return time.Time{}, ErrNoLastReport
	}
	return AddInterval(*job.LastReportDate, *job.Trigger)
}
