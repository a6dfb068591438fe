package tasks

import (
	"context"
	"errors"
	"log/slog"
)

type ProduceEpisodeTask struct {
	Task
	producer EpisodeProducer
	store    *EpisodeStore
}

func NewProduceEpisodeTask(trigger string, producer EpisodeProducer, store *EpisodeStore, maxRetries int) *ProduceEpisodeTask {
	return &ProduceEpisodeTask{
		Task:     NewTask(TaskTypeProduceEpisode, trigger, maxRetries),
		producer: producer,
		store:    store,
	}
}

func (t *ProduceEpisodeTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	episode, err := t.producer.Run(ctx)
	if errors.Is(err, ErrNoContent) {
		// Nothing new today; retrying would not change that.
		slog.Info("Task completed without episode",
			"type", string(t.Type),
			"trigger", t.Trigger,
			"duration", t.GetDuration())
		return nil
	}
	if err != nil {
		return err
	}

	t.store.Set(episode)

	slog.Info("Task completed",
		"type", string(t.Type),
		"trigger", t.Trigger,
		"episode", episode.ID,
		"videos", len(episode.Videos),
		"duration", t.GetDuration())

	return nil
}
