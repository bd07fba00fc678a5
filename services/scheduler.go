// services/scheduler.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// SnapshotUploader stores a blob and returns where it landed.
type SnapshotUploader interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

const (
	snapshotPrefix    = "winners/"
	snapshotLatestKey = snapshotPrefix + "latest.json"
	jobTimeout        = 30 * time.Second
)

// WinnersSnapshot is the document written to object storage.
type WinnersSnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Count       int            `json:"count"`
	Winners     []PublicWinner `json:"winners"`
}

// ReportLinkStats logs how many links are open, expired and claimed.
func (s *LinkService) ReportLinkStats(ctx context.Context) (LinkStats, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return stats, err
	}
	s.Logger.Info("link expiry report",
		zap.Int64("open", stats.Open),
		zap.Int64("expired_unclaimed", stats.Expired),
		zap.Int64("claimed", stats.Claimed),
	)
	return stats, nil
}

// ExportWinnersSnapshot uploads the public winner list twice: once under a
// timestamped key and once as latest.json. It returns the timestamped URL.
func (s *LinkService) ExportWinnersSnapshot(ctx context.Context, uploader SnapshotUploader) (string, error) {
	winners, err := s.ListPublicWinners(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	body, err := json.Marshal(WinnersSnapshot{GeneratedAt: now, Count: len(winners), Winners: winners})
	if err != nil {
		return "", fmt.Errorf("encode winners snapshot: %w", err)
	}

	key := snapshotPrefix + now.Format("20060102T150405Z") + ".json"
	url, err := uploader.PutObject(ctx, key, body, "application/json")
	if err != nil {
		return "", err
	}
	if _, err := uploader.PutObject(ctx, snapshotLatestKey, body, "application/json"); err != nil {
		return "", err
	}
	s.Logger.Info("winners snapshot exported", zap.String("url", url), zap.Int("count", len(winners)))
	return url, nil
}

// StartScheduler registers the periodic jobs and starts gocron. uploader may
// be nil, in which case no snapshot job is registered.
func (s *LinkService) StartScheduler(reportEvery, snapshotEvery time.Duration, uploader SnapshotUploader) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(reportEvery),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if _, err := s.ReportLinkStats(ctx); err != nil {
				s.Logger.Error("[Scheduler] expiry report failed", zap.Error(err))
			}
		}),
		gocron.WithName("link-expiry-report"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("register expiry report: %w", err)
	}

	if uploader != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(snapshotEvery),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
				defer cancel()
				if _, err := s.ExportWinnersSnapshot(ctx, uploader); err != nil {
					s.Logger.Error("[Scheduler] winners snapshot failed", zap.Error(err))
				}
			}),
			gocron.WithName("winners-snapshot"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("register winners snapshot: %w", err)
		}
	}

	sched.Start()
	return sched, nil
}
