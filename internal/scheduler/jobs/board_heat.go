package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/pipeline"
	"github.com/wonny/boardheat/pkg/logger"
)

// Resumer is the part of the pipeline the daily job drives
type Resumer interface {
	Resume(ctx context.Context, target time.Time) ([]*pipeline.RunResult, error)
}

// BoardHeatJob computes board heat and stock signals after the daily data lands
// ⭐ SSOT: 일별 히트/시그널 배치 스케줄은 이 Job에서만
type BoardHeatJob struct {
	pipeline Resumer
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewBoardHeatJob creates a new board heat job
func NewBoardHeatJob(p Resumer, schedule string, log *logger.Logger) *BoardHeatJob {
	return &BoardHeatJob{
		pipeline: p,
		schedule: schedule,
		now:      time.Now,
		logger:   log.WithComponent("jobs.board_heat"),
	}
}

// Name returns the job name
func (j *BoardHeatJob) Name() string {
	return "board_heat_daily"
}

// Schedule returns the cron schedule (SCHEDULE_CRON)
func (j *BoardHeatJob) Schedule() string {
	return j.schedule
}

// Run resumes from the last computed date through today.
// 누락된 날짜가 있으면 함께 채움
func (j *BoardHeatJob) Run(ctx context.Context) error {
	target := contracts.TradeDate(j.now())
	j.logger.WithField("target", contracts.FormatDate(target)).Info("Starting scheduled board heat run")

	results, err := j.pipeline.Resume(ctx, target)
	if err != nil {
		return fmt.Errorf("resume to %s: %w", contracts.FormatDate(target), err)
	}

	signals := 0
	for _, r := range results {
		signals += r.Signals
	}
	j.logger.WithFields(map[string]interface{}{
		"dates":   len(results),
		"signals": signals,
	}).Info("Board heat run completed")

	return nil
}
