// Package registry — клиент общего реестра планировщиков.
//
// Реестр — единственная общая изменяемая среда между экземплярами:
// в нём лежат записи SchedulerInstance и каталог jobs.
// Распределённых блокировок нет, все операции идемпотентны
// и безопасны для повтора.
//
// Структура:
//   - store.go  — контракт Store, который реализуют бэкенды
//     (repo — PostgreSQL, mongostore, redisstore, memstore)
//   - client.go — Client: таймаут на каждый вызов, retry с backoff,
//     метрики ошибок
package registry
