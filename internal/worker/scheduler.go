package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// JobObserver はジョブの実行結果を記録する。nilの場合は記録しない。
type JobObserver interface {
	RecordJobRun(job string, err error)
}

// Entry はジョブと実行スケジュール（cron式または @every 記法）の組。
type Entry struct {
	Schedule string
	Job      Job
}

// Scheduler はcronでジョブを定期実行する。
type Scheduler struct {
	cron     *cron.Cron
	entries  []Entry
	observer JobObserver
	logger   *slog.Logger

	// jobCtx はcronから起動されるジョブに渡す。Startのctxが終了すると取り消される。
	jobCtx     context.Context
	cancelJobs context.CancelFunc
}

// NewScheduler は新しいSchedulerを生成する。
// スケジュールが不正な場合はエラーを返す。
func NewScheduler(entries []Entry, observer JobObserver, logger *slog.Logger) (*Scheduler, error) {
	jobCtx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:       cron.New(),
		entries:    entries,
		observer:   observer,
		logger:     logger,
		jobCtx:     jobCtx,
		cancelJobs: cancel,
	}

	for _, e := range entries {
		job := e.Job
		if _, err := s.cron.AddFunc(e.Schedule, func() {
			s.run(s.jobCtx, job)
		}); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid schedule for %s: %q: %w", job.Name(), e.Schedule, err)
		}
		logger.Info("job scheduled",
			slog.String("job", job.Name()),
			slog.String("schedule", e.Schedule),
		)
	}
	return s, nil
}

// RunAll は全ジョブを並行して1回ずつ実行する。
// ジョブのエラーはログに記録するのみで、呼び出し元には返さない。
func (s *Scheduler) RunAll(ctx context.Context) {
	var g errgroup.Group
	for _, e := range s.entries {
		job := e.Job
		g.Go(func() error {
			s.run(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
}

// Start は起動直後に全ジョブを1回実行した後、ctxがキャンセルされるまでcronを動かす。
// ctx終了時は実行中のジョブのコンテキストも取り消し、その完了を待ってから戻る。
func (s *Scheduler) Start(ctx context.Context) {
	s.RunAll(ctx)

	s.cron.Start()
	s.logger.Info("job scheduler started", slog.Int("jobs", len(s.entries)))

	<-ctx.Done()

	s.cancelJobs()
	<-s.cron.Stop().Done()
	s.logger.Info("job scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	err := job.Run(ctx)
	if s.observer != nil {
		s.observer.RecordJobRun(job.Name(), err)
	}
	if err != nil {
		s.logger.Error("job failed",
			slog.String("job", job.Name()),
			slog.String("error", err.Error()),
		)
	}
}
