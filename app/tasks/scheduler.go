package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var ErrQueueFull = errors.New("task queue is full")

type SchedulerConfig struct {
	Interval       time.Duration
	RunOnStart     bool
	MaxRetries     int
	TaskTimeout    time.Duration
	RetryBaseDelay time.Duration
	QueueSize      int
}

// Scheduler runs episode tasks one at a time: on every interval tick, at
// startup when configured, and on demand.
type Scheduler struct {
	producer  EpisodeProducer
	store     *EpisodeStore
	cfg       SchedulerConfig
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
}

func NewScheduler(producer EpisodeProducer, store *EpisodeStore, cfg SchedulerConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Minute
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4
	}

	return &Scheduler{
		producer:  producer,
		store:     store,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan TaskInterface, cfg.QueueSize),
	}
}

func (s *Scheduler) Start() {
	// One worker only: runs share the output files.
	s.wg.Add(1)
	go s.worker(0)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		if s.cfg.RunOnStart {
			s.enqueueRun(TriggerStartup)
		}

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueRun(TriggerSchedule)
			}
		}
	}()

	slog.Info("Scheduler started", "interval", s.cfg.Interval, "run_on_start", s.cfg.RunOnStart)
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// RequestRun enqueues an episode task and returns its id.
func (s *Scheduler) RequestRun(trigger string) (string, error) {
	task := NewProduceEpisodeTask(trigger, s.producer, s.store, s.cfg.MaxRetries)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}
	return task.GetID(), nil
}

func (s *Scheduler) enqueueRun(trigger string) {
	if _, err := s.RequestRun(trigger); err != nil {
		slog.Warn("Failed to enqueue ProduceEpisodeTask", "trigger", trigger, "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.cfg.TaskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if s.ctx.Err() != nil {
		return
	}

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "trigger", task.GetTrigger(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// retryDelay doubles from RetryBaseDelay per attempt, capped at 30 times
// the base.
func (s *Scheduler) retryDelay(retryCount int) time.Duration {
	delay := s.cfg.RetryBaseDelay * time.Duration(1<<uint(retryCount-1))
	if limit := 30 * s.cfg.RetryBaseDelay; delay > limit {
		delay = limit
	}
	return delay
}
