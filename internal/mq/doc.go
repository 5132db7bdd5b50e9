// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, queues, bindings
//   - publisher.go  — публикация запланированных jobs
//
// Типы сообщений:
//   - job.scheduled — job готов к исполнению
//
// Exchanges:
//   - exosphere.jobs — jobs для исполнителя
//
// Отложенная публикация (cron-jobs публикуются за 5 минут до слота)
// сделана без плагинов: сообщение с expiration кладётся в jobs.delayed,
// по истечении TTL RabbitMQ перекладывает его в jobs.ready.
package mq
