package readiness

import "errors"

// Ошибки проверки готовности.
var (
	// ErrInvalidCron — cron-выражение не парсится.
	ErrInvalidCron = errors.New("invalid cron expression")

	// ErrNoFireTime — у cron-выражения нет следующего срабатывания.
	ErrNoFireTime = errors.New("cron expression has no next fire time")

	// ErrUnsupportedUnit — неизвестная единица trigger.
	ErrUnsupportedUnit = errors.New("unsupported trigger unit")

	// ErrInvalidTrigger — значение trigger не задано или не положительное.
	ErrInvalidTrigger = errors.New("invalid trigger value")

	// ErrNoTrigger — job не trigger, следующая дата отчёта не определена.
	ErrNoTrigger = errors.New("job has no trigger")

	// ErrNoLastReport — у job нет даты последнего отчёта.
	ErrNoLastReport = errors.New("job has no last report date")

	// ErrNoSchedule — у job нет ни cron, ни trigger.
	ErrNoSchedule = errors.New("job has neither cron nor trigger")

	// ErrMissingField — у зависимости не заполнено обязательное поле.
	ErrMissingField = errors.New("dependency is missing a required field")

	// ErrMissingDependency — job зависит от неизвестного job.
	ErrMissingDependency = errors.New("job depends on unknown job")

	// ErrCyclicDependency — обнаружен цикл в зависимостях jobs.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)
