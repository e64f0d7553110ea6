package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"FxDesk/internal/domain/models"
	"FxDesk/pkg/logger"
)

// StageFunc reads the state and returns a partial update. Stage functions
// report failure as data and never return an error.
type StageFunc func(ctx context.Context, s models.State) models.Update

// NamedStage pairs a stage with the name its failures are recorded under.
type NamedStage struct {
	Name models.StageName
	Run  StageFunc
}

// Safe converts a panic inside fn into the stage's failure update.
func Safe(name models.StageName, fn StageFunc, log *logger.Logger) StageFunc {
	return func(ctx context.Context, s models.State) (u models.Update) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("stage panicked",
					logger.String("stage", name.String()),
					logger.Any("panic", r),
					logger.String("stack", string(debug.Stack())))
				u = models.FailureUpdate(name, fmt.Sprintf("stage panicked: %v", r), s.StepCount+1)
			}
		}()
		return fn(ctx, s)
	}
}

// StageNode adapts a stage function to an engine node guarded by Safe.
func StageNode(name models.StageName, fn StageFunc, log *logger.Logger) Node {
	safe := Safe(name, fn, log)
	return func(ctx context.Context, s models.State) (models.Update, error) {
		return safe(ctx, s), nil
	}
}
