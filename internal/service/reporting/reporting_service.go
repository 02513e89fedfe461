package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/repository"
	repo "github.com/mamadbah2/feedengine/internal/repository/sheets"
	"github.com/mamadbah2/feedengine/pkg/clients/whatsapp"
)

const dateLayout = "2006-01-02"

// InsightComputer computes a batch's insights.
type InsightComputer interface {
	ComputeInsights(ctx context.Context, batch models.ConsumptionBatch) (models.BatchInsights, error)
}

// Options carries the optional outputs of the daily report.
type Options struct {
	// Sheet receives one row per batch when not nil.
	Sheet repo.Repository
	// Notifier sends the per-farm summary to Recipient when both are set.
	Notifier  whatsapp.Client
	Recipient string
	Location  *time.Location
}

// Result summarizes one report run.
type Result struct {
	Farms     int
	Batches   int
	Failures  int
	Exported  int
	Notified  int
	Snapshots []models.InsightSnapshot
}

// Service produces the daily feed insights report.
type Service struct {
	batches  repository.BatchStore
	store    repository.InsightStore
	insights InsightComputer
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(batches repository.BatchStore, store repository.InsightStore, insights InsightComputer, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		batches:  batches,
		store:    store,
		insights: insights,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// RunDaily snapshots the insights of every active batch. A failing batch is
// logged and skipped so one bad farm does not block the others.
func (s *Service) RunDaily(ctx context.Context) (Result, error) {
	var res Result

	farmIDs, err := s.batches.ListActiveFarmIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list farms with active batches: %w", err)
	}

	now := s.now()
	local := now.In(s.opts.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	exported, err := s.exportedKeys(ctx, day)
	if err != nil {
		s.logger.Warn("unable to read previous insight rows, exporting without dedup", zap.Error(err))
	}

	for _, farmID := range farmIDs {
		res.Farms++
		batches, err := s.batches.ListBatches(ctx, farmID)
		if err != nil {
			res.Failures++
			s.logger.Error("failed to list batches", zap.String("farm_id", farmID), zap.Error(err))
			continue
		}

		var farmSnapshots []models.InsightSnapshot
		for _, b := range batches {
			if !b.IsActive {
				continue
			}
			res.Batches++

			snap, err := s.snapshot(ctx, b, day, now)
			if err != nil {
				res.Failures++
				s.logger.Error("failed to snapshot batch insights",
					zap.String("farm_id", farmID), zap.String("batch_id", b.ID), zap.Error(err))
				continue
			}
			farmSnapshots = append(farmSnapshots, snap)

			if s.opts.Sheet == nil {
				continue
			}
			if _, done := exported[repo.ExportKey{FarmID: farmID, BatchID: b.ID}]; done {
				continue
			}
			if err := s.opts.Sheet.AppendInsightRow(ctx, snap); err != nil {
				s.logger.Warn("failed to export insight row", zap.String("batch_id", b.ID), zap.Error(err))
				continue
			}
			res.Exported++
		}

		res.Snapshots = append(res.Snapshots, farmSnapshots...)
		if s.notify(ctx, farmID, day, farmSnapshots) {
			res.Notified++
		}
	}

	s.logger.Info("daily insights report completed",
		zap.Int("farms", res.Farms),
		zap.Int("batches", res.Batches),
		zap.Int("failures", res.Failures),
		zap.Int("exported", res.Exported))
	return res, nil
}

func (s *Service) snapshot(ctx context.Context, b models.ConsumptionBatch, day, now time.Time) (models.InsightSnapshot, error) {
	insights, err := s.insights.ComputeInsights(ctx, b)
	if err != nil {
		return models.InsightSnapshot{}, err
	}
	snap := models.InsightSnapshot{
		Date:      day,
		BatchName: b.BatchName,
		Insights:  insights,
		CreatedAt: now.UTC(),
	}
	if err := s.store.SaveInsightSnapshot(ctx, snap); err != nil {
		return models.InsightSnapshot{}, err
	}
	return snap, nil
}

func (s *Service) notify(ctx context.Context, farmID string, day time.Time, snaps []models.InsightSnapshot) bool {
	if s.opts.Notifier == nil || s.opts.Recipient == "" || len(snaps) == 0 {
		return false
	}
	req := models.OutboundMessageRequest{
		To:      s.opts.Recipient,
		Message: FormatSummary(farmID, day, snaps),
	}
	if _, err := s.opts.Notifier.Send(ctx, req); err != nil {
		s.logger.Error("failed to send daily summary", zap.String("farm_id", farmID), zap.Error(err))
		return false
	}
	return true
}

// exportedKeys returns the batches already exported for day.
func (s *Service) exportedKeys(ctx context.Context, day time.Time) (map[repo.ExportKey]struct{}, error) {
	if s.opts.Sheet == nil {
		return map[repo.ExportKey]struct{}{}, nil
	}
	return s.opts.Sheet.ExportedBatches(ctx, day)
}

// FormatSummary renders the WhatsApp text of a farm's daily report.
func FormatSummary(farmID string, day time.Time, snaps []models.InsightSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feed report %s (farm %s)\n", day.Format(dateLayout), farmID)

	var totalKg float64
	var totalCost float64
	costKnown := true
	for _, snap := range snaps {
		in := snap.Insights
		totalKg += in.DailyConsumptionKg
		line := fmt.Sprintf("- %s: %d animals, %.2f kg/day", snap.BatchName, in.TargetedCount, in.DailyConsumptionKg)
		if in.DailyCost != nil {
			totalCost += *in.DailyCost
			line += fmt.Sprintf(", cost %.2f", *in.DailyCost)
		} else {
			costKnown = false
			line += ", cost unknown"
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(&b, "Total: %.2f kg/day", totalKg)
	if costKnown {
		fmt.Fprintf(&b, ", cost %.2f", totalCost)
	}
	return b.String()
}
