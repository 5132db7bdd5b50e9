// Package redisstore — реестр в Redis.
//
// Записи планировщиков — hash'и exosphere:scheduler:{id}, индекс
// primary-записей — set exosphere:primary_ids. Jobs — hash'и
// exosphere:job:{name}: определение в поле definition, дата отчёта
// в поле last_report_date (её пишет система исполнения).
//
// Составные изменения (флаг + индекс) выполняются в MULTI/EXEC,
// снятие всех флагов — Lua-скриптом.
package redisstore
