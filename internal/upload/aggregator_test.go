package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

func TestOverall(t *testing.T) {
	tasks := []domain.UploadTask{
		{State: domain.TaskSucceeded, Progress: 0.3},
		{State: domain.TaskFailed, Progress: 0.4},
		{State: domain.TaskActive, Progress: 0.5},
		{State: domain.TaskQueued, Progress: 0.9},
		{State: domain.TaskCancelled, Progress: 0.2},
	}
	// 1 + 0.4 + 0.5 + 0 + 0.2
	assert.InDelta(t, 2.1/5, Overall(tasks, false), 1e-9)
}

func TestOverall_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Overall(nil, false))
	assert.Equal(t, 1.0, Overall(nil, true))
}

func TestBatchRecompute(t *testing.T) {
	b := &batch{}
	b.tasks = []*task{
		{UploadTask: domain.UploadTask{State: domain.TaskActive, Progress: 0.5}, batch: b},
		{UploadTask: domain.UploadTask{State: domain.TaskQueued}, batch: b},
	}
	assert.Equal(t, 0.25, b.recompute())

	b.tasks[1].State = domain.TaskActive
	b.tasks[1].Progress = 0.5
	assert.Equal(t, 0.5, b.recompute())

	empty := &batch{done: true}
	assert.Equal(t, 1.0, empty.recompute())
}
