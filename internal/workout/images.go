package workout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SafePlan/internal/database"
	"SafePlan/internal/utility"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ImageGenerator produces an illustration for one exercise. A nil URL means no picture.
type ImageGenerator interface {
	GenerateExerciseImage(ctx context.Context, exerciseName, visualCue string) (*string, error)
}

// ImageOptions bounds the per-plan illustration fan-out.
type ImageOptions struct {
	// MaxDelay is the upper bound of the random wait before each request.
	MaxDelay time.Duration
	// Concurrency caps in-flight requests for a single plan.
	Concurrency int
}

// KeyedExercise is an exercise plus its position inside the plan.
type KeyedExercise struct {
	Key string
	database.Exercise
}

// ExerciseKey names an exercise by position, e.g. "p0-d2-e1".
func ExerciseKey(phase, day, exercise int) string {
	return fmt.Sprintf("p%d-d%d-e%d", phase, day, exercise)
}

// ExerciseKeys flattens the plan in phase, day, exercise order.
func ExerciseKeys(plan database.WorkoutPlanResponse) []KeyedExercise {
	var out []KeyedExercise
	for pi, phase := range plan.Phases {
		for di, day := range phase.Schedule {
			for ei, ex := range day.Exercises {
				out = append(out, KeyedExercise{Key: ExerciseKey(pi, di, ei), Exercise: ex})
			}
		}
	}
	return out
}

type imageJob struct {
	name, cue string
	keys      []string
}

// FetchImages requests one illustration per distinct exercise (same name and
// visual cue share a request) and reports a result for every exercise key not
// in skip. Each request waits a random delay first. Failures are logged and
// reported as a nil image, never returned. onImage calls are serialized.
// The only error returned is the context's.
func FetchImages(
	ctx context.Context,
	gen ImageGenerator,
	plan database.WorkoutPlanResponse,
	opts ImageOptions,
	skip map[string]bool,
	onImage func(database.ExerciseImage),
) error {
	logger := zerolog.Ctx(ctx)

	var jobs []*imageJob
	byExercise := make(map[string]*imageJob)
	for _, ke := range ExerciseKeys(plan) {
		if skip[ke.Key] {
			continue
		}
		id := ke.Name + "\x00" + ke.VisualCue
		job, ok := byExercise[id]
		if !ok {
			job = &imageJob{name: ke.Name, cue: ke.VisualCue}
			byExercise[id] = job
			jobs = append(jobs, job)
		}
		job.keys = append(job.keys, ke.Key)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var emitMu sync.Mutex

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := utility.RandomDelay(gctx, opts.MaxDelay); err != nil {
				return nil
			}

			url, err := gen.GenerateExerciseImage(gctx, job.name, job.cue)
			if err != nil {
				logger.Warn().Err(err).Str("exercise", job.name).Msg("Failed to generate exercise image")
				url = nil
			}
			if gctx.Err() != nil {
				return nil
			}

			emitMu.Lock()
			defer emitMu.Unlock()
			for _, key := range job.keys {
				onImage(database.ExerciseImage{Key: key, Name: job.name, VisualCue: job.cue, Image: url})
			}
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}
