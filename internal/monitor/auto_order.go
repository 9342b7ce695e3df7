package monitor

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/modules/orders"
)

// AutoOrderJob runs the automated order generation sweep.
type AutoOrderJob struct {
	generator *orders.Generator
	log       zerolog.Logger
}

// NewAutoOrderJob creates the auto-order job.
func NewAutoOrderJob(generator *orders.Generator, log zerolog.Logger) *AutoOrderJob {
	return &AutoOrderJob{
		generator: generator,
		log:       log.With().Str("job", "auto_order").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *AutoOrderJob) Name() string { return "auto_order" }

// Run generates draft purchase orders for every product that qualifies.
func (j *AutoOrderJob) Run() error {
	created, err := j.generator.GenerateAutomatedOrders()
	if err != nil {
		return fmt.Errorf("automated order generation failed: %w", err)
	}
	j.log.Info().Int("orders_created", len(created)).Msg("Auto-order sweep completed")
	return nil
}
