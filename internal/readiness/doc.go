// Package readiness решает, пора ли публиковать job.
//
// Evaluator не пишет в хранилище: он читает каталог jobs и
// спрашивает внешний предикат о наличии данных в БД.
// Любая ошибка (невалидный cron, неизвестная единица trigger,
// отсутствующий job, пустые поля зависимости) логируется и даёт
// "не готов" — лучше не запланировать, чем запланировать лишнее.
//
// Структура:
//   - cron.go      — парсинг cron-выражений (robfig/cron)
//   - trigger.go   — арифметика интервалов, включая календарные месяцы
//   - evaluator.go — staleness, зависимости, итоговое решение
//   - graph.go     — граф зависимостей между jobs (проверка циклов)
package readiness
