// Package election реализует выборы ведущего (primary) планировщика.
//
// Координации кроме общего реестра нет: каждый экземпляр пишет свою
// запись и периодически читает чужие. Несколько primary одновременно
// возможны на короткое время, reconcile сводит их к одному.
//
// Состояния:
//
//	INITIALIZING → DORMANT → CONTENDING → PRIMARY
//	                  ↑                      ↓
//	                  └──── STEPPED_DOWN ←───┘
//
// Структура:
//   - state.go       — состояния и переходы
//   - coordinator.go — Coordinator: Initialize, Step, StillPrimary, Run
//   - reconcile.go   — сведение нескольких primary к одному
//
// Использование:
//
//	coord := election.New(election.Config{
//	    Registry: registryClient,
//	    Scorer:   prober,
//	    Hostname: hostname,
//	    Logger:   logger,
//	})
//
//	// Блокируется до отмены ctx; loop.Lead вызывается, пока экземпляр primary.
//	err := coord.Run(ctx, loop)
package election
