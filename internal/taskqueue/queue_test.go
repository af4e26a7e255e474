package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bizrank/review-service/internal/storage/memory"
	"github.com/bizrank/review-service/internal/types"
)

type QueueSuite struct {
	suite.Suite

	ctx   context.Context
	clock time.Time
	queue *Queue
}

func (s *QueueSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.queue = New(memory.New(), nil).WithClock(func() time.Time { return s.clock })
}

func (s *QueueSuite) tick(d time.Duration) { s.clock = s.clock.Add(d) }

func (s *QueueSuite) enqueue(taskType types.TaskType, businessID string, priority int) string {
	res, err := s.queue.Enqueue(s.ctx, EnqueueInput{Type: taskType, BusinessID: businessID, Priority: priority})
	s.Require().NoError(err)
	s.tick(time.Second)
	return res.ID
}

func (s *QueueSuite) TestEnqueueValidatesType() {
	_, err := s.queue.Enqueue(s.ctx, EnqueueInput{Type: "email", BusinessID: "b1"})
	s.Error(err)
}

func (s *QueueSuite) TestEnqueueSuppressesOpenDuplicates() {
	first, err := s.queue.Enqueue(s.ctx, EnqueueInput{
		Type:       types.TaskAIAnalysis,
		BusinessID: "b1",
		Metadata:   map[string]int{"reviews": 12},
	})
	s.Require().NoError(err)
	s.True(first.Created)

	second, err := s.queue.Enqueue(s.ctx, EnqueueInput{Type: types.TaskAIAnalysis, BusinessID: "b1"})
	s.Require().NoError(err)
	s.False(second.Created)
	s.Equal(first.ID, second.ID)

	other, err := s.queue.Enqueue(s.ctx, EnqueueInput{Type: types.TaskRankingCalculation, BusinessID: "b1"})
	s.Require().NoError(err)
	s.True(other.Created)

	task, err := s.queue.Get(s.ctx, first.ID)
	s.Require().NoError(err)
	s.JSONEq(`{"reviews":12}`, string(task.Metadata))
	s.Equal(DefaultMaxRetries, task.MaxRetries)
}

func (s *QueueSuite) TestGetNextOrdersByPriorityThenInsertion() {
	low := s.enqueue(types.TaskRankingCalculation, "b1", 1)
	highOld := s.enqueue(types.TaskRankingCalculation, "b2", 5)
	highNew := s.enqueue(types.TaskRankingCalculation, "b3", 5)
	s.enqueue(types.TaskAIAnalysis, "b4", 9)

	var order []string
	for {
		task, err := s.queue.GetNext(s.ctx, types.TaskRankingCalculation)
		s.Require().NoError(err)
		if task == nil {
			break
		}
		s.Equal(types.TaskProcessing, task.Status)
		s.Equal(1, task.Attempts)
		order = append(order, task.ID)
	}
	s.Equal([]string{highOld, highNew, low}, order)
}

func (s *QueueSuite) TestGetNextAnyType() {
	s.enqueue(types.TaskRankingCalculation, "b1", 1)
	ai := s.enqueue(types.TaskAIAnalysis, "b2", 9)

	task, err := s.queue.GetNext(s.ctx, "")
	s.Require().NoError(err)
	s.Require().NotNil(task)
	s.Equal(ai, task.ID)
}

func (s *QueueSuite) TestFailRetriesUntilExhausted() {
	id := s.enqueue(types.TaskAIAnalysis, "b1", 1)

	for attempt := 1; attempt <= DefaultMaxRetries; attempt++ {
		task, err := s.queue.GetNext(s.ctx, types.TaskAIAnalysis)
		s.Require().NoError(err)
		s.Require().NotNil(task)
		s.Equal(attempt, task.Attempts)

		status, err := s.queue.Fail(s.ctx, id, errors.New("backend timeout"), true)
		s.Require().NoError(err)
		if attempt < DefaultMaxRetries {
			s.Equal(types.TaskRetrying, status)
		} else {
			s.Equal(types.TaskFailed, status)
		}
	}

	task, err := s.queue.GetNext(s.ctx, types.TaskAIAnalysis)
	s.Require().NoError(err)
	s.Nil(task)

	stored, err := s.queue.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("backend timeout", stored.LastError)
	s.NotNil(stored.CompletedAt)
}

func (s *QueueSuite) TestPermanentFailureSkipsRetry() {
	id := s.enqueue(types.TaskAIAnalysis, "b1", 1)
	_, err := s.queue.GetNext(s.ctx, types.TaskAIAnalysis)
	s.Require().NoError(err)

	status, err := s.queue.Fail(s.ctx, id, errors.New("business not found"), false)

	s.Require().NoError(err)
	s.Equal(types.TaskFailed, status)
}

func (s *QueueSuite) TestComplete() {
	id := s.enqueue(types.TaskRankingCalculation, "b1", 1)
	s.ErrorIs(s.queue.Complete(s.ctx, id, nil), types.ErrInvalidState)

	_, err := s.queue.GetNext(s.ctx, types.TaskRankingCalculation)
	s.Require().NoError(err)
	s.tick(1500 * time.Millisecond)
	s.Require().NoError(s.queue.Complete(s.ctx, id, map[string]float64{"overallScore": 81.5}))

	task, err := s.queue.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(types.TaskCompleted, task.Status)
	s.JSONEq(`{"overallScore":81.5}`, string(task.Result))

	stats, err := s.queue.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.ByStatus[types.TaskCompleted])
	s.Equal(1, stats.ByType[types.TaskRankingCalculation].Completed)
	s.Equal(1500.0, stats.AvgProcessingMillis)
}

func (s *QueueSuite) TestCancel() {
	pending := s.enqueue(types.TaskAchievementDetection, "b1", 1)
	running := s.enqueue(types.TaskAIAnalysis, "b2", 1)
	_, err := s.queue.GetNext(s.ctx, types.TaskAIAnalysis)
	s.Require().NoError(err)

	s.Require().NoError(s.queue.Cancel(s.ctx, pending))
	s.ErrorIs(s.queue.Cancel(s.ctx, running), types.ErrInvalidState)
	s.ErrorIs(s.queue.Cancel(s.ctx, "tsk_missing"), types.ErrNotFound)

	// a cancelled task no longer suppresses a new one
	res, err := s.queue.Enqueue(s.ctx, EnqueueInput{Type: types.TaskAchievementDetection, BusinessID: "b1"})
	s.Require().NoError(err)
	s.True(res.Created)
}

func (s *QueueSuite) TestSweepStuck_FailsEvenWithAttemptsLeft() {
	withRetries, err := s.queue.Enqueue(s.ctx, EnqueueInput{Type: types.TaskAIAnalysis, BusinessID: "b1", MaxRetries: 3})
	s.Require().NoError(err)
	exhausted, err := s.queue.Enqueue(s.ctx, EnqueueInput{Type: types.TaskAIAnalysis, BusinessID: "b2", MaxRetries: 1})
	s.Require().NoError(err)
	for i := 0; i < 2; i++ {
		_, err := s.queue.GetNext(s.ctx, types.TaskAIAnalysis)
		s.Require().NoError(err)
	}

	s.tick(4 * time.Minute)
	n, err := s.queue.SweepStuck(s.ctx, 5*time.Minute)
	s.Require().NoError(err)
	s.Zero(n)

	s.tick(2 * time.Minute)
	n, err = s.queue.SweepStuck(s.ctx, 5*time.Minute)
	s.Require().NoError(err)
	s.Equal(2, n)

	for _, id := range []string{withRetries.ID, exhausted.ID} {
		task, err := s.queue.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(types.TaskFailed, task.Status)
		s.Equal(StuckError, task.LastError)
		s.Equal(1, task.Attempts)
		s.Require().NotNil(task.CompletedAt)
	}

	// a swept task is not claimed again by the lane
	next, err := s.queue.GetNext(s.ctx, types.TaskAIAnalysis)
	s.Require().NoError(err)
	s.Nil(next)
}

func (s *QueueSuite) TestCleanup() {
	id := s.enqueue(types.TaskRankingCalculation, "b1", 1)
	_, err := s.queue.GetNext(s.ctx, "")
	s.Require().NoError(err)
	s.Require().NoError(s.queue.Complete(s.ctx, id, nil))
	open := s.enqueue(types.TaskRankingCalculation, "b2", 1)

	s.tick(8 * 24 * time.Hour)
	n, err := s.queue.Cleanup(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.queue.Get(s.ctx, open)
	s.NoError(err)

	stats, err := s.queue.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.ByStatus[types.TaskPending])
	s.Equal(8*24*time.Hour+time.Second, stats.OldestPendingAge)
}

func (s *QueueSuite) TestResultEncodingError() {
	id := s.enqueue(types.TaskRankingCalculation, "b1", 1)
	_, err := s.queue.GetNext(s.ctx, "")
	s.Require().NoError(err)

	err = s.queue.Complete(s.ctx, id, json.RawMessage(`{not json`))
	s.Error(err)
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}
