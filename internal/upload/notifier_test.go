package upload

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

type panicky struct{ recorder }

func (p *panicky) FileRejected(domain.Rejection) { panic("boom") }

func TestNotifier_OrderAndFlush(t *testing.T) {
	rec := &recorder{}
	n := newNotifier(rec, logrus.WithField("component", "test"))

	done := make(chan struct{})
	for _, id := range []string{"1", "2", "3"} {
		n.push(event{kind: eventTask, update: domain.TaskUpdate{ID: id, Status: domain.TaskActive}})
	}
	n.push(event{kind: eventBatch, summary: domain.BatchSummary{BatchID: "b"}, delivered: done})
	n.close()

	<-done
	assert.Equal(t, []string{"task:1:ACTIVE", "task:2:ACTIVE", "task:3:ACTIVE", "batch:b"}, rec.events())
}

func TestNotifier_PresenterPanicIsContained(t *testing.T) {
	p := &panicky{}
	n := newNotifier(p, logrus.WithField("component", "test"))

	n.push(event{kind: eventRejected, rejection: domain.Rejection{DisplayName: "x"}})
	n.push(event{kind: eventTask, update: domain.TaskUpdate{ID: "after", Status: domain.TaskQueued}})
	n.close()

	assert.Equal(t, []string{"task:after:QUEUED"}, p.events())
}
