package upload

import "github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"

// contribution is what one task adds to its batch's overall progress.
// Failed and cancelled tasks keep their last progress.
func contribution(t *domain.UploadTask) float64 {
	switch t.State {
	case domain.TaskSucceeded:
		return 1
	case domain.TaskQueued:
		return 0
	default:
		return t.Progress
	}
}

// Overall returns the mean contribution of tasks. An empty batch counts as
// complete once it is done.
func Overall(tasks []domain.UploadTask, done bool) float64 {
	if len(tasks) == 0 {
		if done {
			return 1
		}
		return 0
	}
	var sum float64
	for i := range tasks {
		sum += contribution(&tasks[i])
	}
	return sum / float64(len(tasks))
}

// recompute refreshes b.overall from the live tasks. Each contribution only
// grows, and the sum runs in submission order, so the result never drops.
func (b *batch) recompute() float64 {
	if len(b.tasks) == 0 {
		if b.done {
			b.overall = 1
		}
		return b.overall
	}
	var sum float64
	for _, t := range b.tasks {
		sum += contribution(&t.UploadTask)
	}
	b.overall = sum / float64(len(b.tasks))
	return b.overall
}
