// Package telemetry обеспечивает наблюдаемость планировщика.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики (выборы, публикации, реестр)
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
