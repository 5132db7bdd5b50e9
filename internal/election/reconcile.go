package election

import (
	"context"
	"fmt"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/telemetry"
)

// pickWinner выбирает одного primary среди претендентов:
// минимальный score, при равенстве — минимальный ID.
func pickWinner(candidates []domain.SchedulerInstance) *domain.SchedulerInstance {
	if len(candidates) == 0 {
		return nil
	}
	winner := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		if candidates[i].BetterThan(winner) {
			winner = &candidates[i]
		}
	}
	return winner
}

// Reconcile сводит несколько primary к одному.
//
// Если primary больше одного: снимает флаг со всех записей и
// ставит его обратно только победителю среди бывших primary.
// Повторный вызов без изменений score ничего не меняет.
// Возвращает true, если пришлось переизбирать.
func (c *Coordinator) Reconcile(ctx context.Context) (bool, error) {
	primaries, err := c.registry.Primaries(ctx)
	if err != nil {
		telemetry.Reconciliations.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("list primaries: %w", err)
	}

	if len(primaries) <= 1 {
		telemetry.Reconciliations.WithLabelValues("noop").Inc()
		return false, nil
	}

	winner := pickWinner(primaries)

	c.logger.Warn("multiple primary schedulers found, reconciling",
		"primaries", len(primaries),
		"winner", winner.ID,
		"winner_score", winner.Score,
	)

	if err := c.registry.ClearPrimaries(ctx); err != nil {
		telemetry.Reconciliations.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("clear primaries: %w", err)
	}

	// Если запись не удалась, primary не останется вовсе —
	// следующий раунд выборов это исправит.
	if err := c.registry.SetPrimary(ctx, winner.ID, true); err != nil {
		telemetry.Reconciliations.WithLabelValues("failed").Inc()
		return true, fmt.Errorf("set primary %s: %w", winner.ID, err)
	}

	telemetry.Reconciliations.WithLabelValues("resolved").Inc()
	return true, nil
}
