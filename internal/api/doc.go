// Package api содержит HTTP-интерфейс сервиса планировщика.
//
// Структура:
//   - handler.go    — Handler с зависимостями (выборы, цикл, реестр)
//   - routes.go     — регистрация маршрутов
//   - middleware.go — middleware (logging, recovery)
//   - response.go   — унифицированные JSON-ответы и обработка ошибок
//
// Все endpoints только читают состояние:
//
//	GET /healthz                — liveness
//	GET /status                 — состояние выборов и итоги последнего прохода
//	GET /api/v1/instances       — реестр планировщиков
//	GET /api/v1/jobs            — каталог jobs
//	GET /api/v1/jobs/{name}     — один job
//
// /metrics регистрируется вызывающей стороной (promhttp).
package api
