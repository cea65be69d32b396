package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingSurveys struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (b *blockingSurveys) DispatchDue(ctx context.Context, limit int) (int, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.release != nil {
		<-b.release
	}
	return 1, nil
}

func (b *blockingSurveys) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestSurveyScheduler_SkipsOverlappingTicks(t *testing.T) {
	svc := &blockingSurveys{release: make(chan struct{})}
	s := NewSurveyScheduler(svc, "")

	go s.tick()
	require.Eventually(t, func() bool { return svc.count() == 1 }, time.Second, 5*time.Millisecond)
	s.tick()
	assert.Equal(t, 1, svc.count())

	close(svc.release)
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.running
	}, time.Second, 5*time.Millisecond)
	s.tick()
	assert.Equal(t, 2, svc.count())
}

func TestSurveyScheduler_RejectsBadSpec(t *testing.T) {
	s := NewSurveyScheduler(&blockingSurveys{}, "not a cron")
	assert.Error(t, s.Start())

	s = NewSurveyScheduler(&blockingSurveys{}, "*/5 * * * *")
	require.NoError(t, s.Start())
	s.Stop()
}
