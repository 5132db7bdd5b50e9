package redisstore

// Все ключи начинаются с "exosphere:".
const keyPrefix = "exosphere:"

// schedulerKey — hash записи планировщика: exosphere:scheduler:{id}
func schedulerKey(id string) string { return keyPrefix + "scheduler:" + id }

// schedulerIDsKey — set всех ID планировщиков.
const schedulerIDsKey = keyPrefix + "scheduler_ids"

// primaryIDsKey — set ID планировщиков с primary=true.
const primaryIDsKey = keyPrefix + "primary_ids"

// jobKey — hash job: exosphere:job:{name}
//
//	definition        JSON без lastReportDate
//	last_report_date  RFC3339, пишется системой исполнения
func jobKey(name string) string { return keyPrefix + "job:" + name }

const (
	jobFieldDefinition = "definition"
	jobFieldLastReport = "last_report_date"
)

// jobNamesKey — set всех имён jobs.
const jobNamesKey = keyPrefix + "job_names"
