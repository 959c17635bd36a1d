package stage

import (
	"context"

	"subfuse/internal/queue"
)

// Handler describes the contract the pipeline manager needs from each stage.
// Prepare validates preconditions and claims resources; Execute does the
// work and moves the item's artifacts forward; HealthCheck reports whether
// the stage could run right now.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
