// Package scheduler реализует цикл планирования primary-экземпляра.
//
// Loop запускается Coordinator'ом, когда экземпляр стал primary,
// и работает, пока роль подтверждается. Каждый цикл:
//  1. Подтверждает лидерство (StillPrimary)
//  2. Проверяет все jobs каталога (параллельно)
//  3. Публикует готовые: cron с задержкой 300s, trigger без задержки
//  4. Обновляет heartbeat и спит SweepInterval
//
// Потеря лидерства замечается только в начале следующего цикла:
// начатый проход доводится до конца.
//
// Структура:
//   - scheduler.go — Loop (Lead, Tick)
//   - job.go       — ScheduledJob и ключ идемпотентности
//
// Использование:
//
//	loop := scheduler.New(scheduler.Config{
//	    Leadership: coordinator,
//	    Jobs:       registryClient,
//	    Evaluator:  evaluator,
//	    Publisher:  publisher,
//	    Logger:     logger,
//	})
//
//	coordinator.Run(ctx, loop)
package scheduler
