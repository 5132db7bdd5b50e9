package domain

import (
	"time"
)

// TriggerUnit — единица измерения интервала trigger.
type TriggerUnit string

const (
	TriggerUnitMonths  TriggerUnit = "months"
	TriggerUnitWeeks   TriggerUnit = "weeks"
	TriggerUnitDays    TriggerUnit = "days"
	TriggerUnitHours   TriggerUnit = "hours"
	TriggerUnitMinutes TriggerUnit = "minutes"
	TriggerUnitSeconds TriggerUnit = "seconds"
)

// IsValid проверяет, поддерживается ли единица.
func (u TriggerUnit) IsValid() bool {
	switch u {
	case TriggerUnitMonths, TriggerUnitWeeks, TriggerUnitDays,
		TriggerUnitHours, TriggerUnitMinutes, TriggerUnitSeconds:
		return true
	default:
		return false
	}
}

// Trigger — относительное расписание: запуск через {Value} {Unit}
// после последнего отчёта.
type Trigger struct {
	Unit  TriggerUnit `json:"unit" yaml:"unit"`
	Value int         `json:"value" yaml:"value"`
}

// JobDependency — зависимость от другого job по имени.
type JobDependency struct {
	JobName string `json:"job_name" yaml:"jobName"`
}

// DatabaseDependency — зависимость от наличия данных во внешней БД.
//
// Job готов, только если в {Schema}.{Table} есть строка,
// у которой {Column} равен следующей дате отчёта job.
type DatabaseDependency struct {
	// DBKind — тип хранилища: "postgresql" (любое *sql) или "mongo".
	DBKind string `json:"db_kind" yaml:"dbName"`

	// Schema — схема (для mongo — база данных).
	Schema string `json:"schema" yaml:"schema"`

	// Table — таблица (для mongo — коллекция).
	Table string `json:"table" yaml:"table"`

	// Column — колонка (для mongo — поле документа).
	Column string `json:"column" yaml:"column"`

	// Layout — формат даты (Go layout). Если задан, значение
	// передаётся строкой, иначе — как timestamp.
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// Dependencies — все зависимости job.
type Dependencies struct {
	Jobs     []JobDependency      `json:"jobs,omitempty" yaml:"jobs,omitempty"`
	Database []DatabaseDependency `json:"database,omitempty" yaml:"database,omitempty"`
}

// IsEmpty возвращает true, если зависимостей нет.
func (d Dependencies) IsEmpty() bool {
	return len(d.Jobs) == 0 && len(d.Database) == 0
}

// JobDefinition — описание job в каталоге.
//
// Job запускается:
//   - по cron-выражению: "*/5 * * * *"
//   - по trigger: через {unit, value} после LastReportDate
//
// Оба способа могут быть заданы одновременно, тогда каждый
// проверяется независимо.
type JobDefinition struct {
	// Name — уникальное имя job.
	Name string `json:"name" yaml:"name"`

	// Cron — cron-выражение (опционально).
	Cron string `json:"cron,omitempty" yaml:"cron,omitempty"`

	// Trigger — относительный интервал (опционально).
	Trigger *Trigger `json:"trigger,omitempty" yaml:"trigger,omitempty"`

	// Dependencies — зависимости от других jobs и от данных в БД.
	Dependencies Dependencies `json:"dependencies" yaml:"dependencies,omitempty"`

	// LastReportDate — дата последнего отчёта (успешного запуска).
	// Владелец поля — система исполнения, планировщик только читает.
	// nil означает, что job ещё ни разу не запускался.
	LastReportDate *time.Time `json:"last_report_date,omitempty" yaml:"lastReportDate,omitempty"`
}

// IsCron возвращает true, если job запускается по cron.
func (j *JobDefinition) IsCron() bool {
	return j.Cron != ""
}

// IsTrigger возвращает true, если job запускается по trigger.
func (j *JobDefinition) IsTrigger() bool {
	return j.Trigger != nil
}
