package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/feedengine/internal/config"
	"github.com/mamadbah2/feedengine/internal/domain/models"
)

const (
	dateLayout    = "2006-01-02"
	insightsRange = "Insights!A:G"
)

// ExportKey identifies one exported insight row.
type ExportKey struct {
	FarmID  string
	BatchID string
}

// Repository is the insights export sheet: one row per batch and day.
type Repository interface {
	AppendInsightRow(ctx context.Context, snap models.InsightSnapshot) error
	ExportedBatches(ctx context.Context, day time.Time) (map[ExportKey]struct{}, error)
}

// valueStore is the slice of the Sheets values API the repository needs.
type valueStore interface {
	Append(ctx context.Context, sheetRange string, row []interface{}) error
	Get(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// GoogleSheetRepository implements Repository over a Google spreadsheet.
type GoogleSheetRepository struct {
	values valueStore
	logger *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("sheets export is not configured")
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return newRepository(&apiValues{service: service, spreadsheetID: cfg.SpreadsheetID}, logger), nil
}

func newRepository(values valueStore, logger *zap.Logger) *GoogleSheetRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleSheetRepository{values: values, logger: logger}
}

// AppendInsightRow appends the snapshot as
// date, farm, batch, batch name, animals, kg/day, cost/day.
// The cost cell is empty when the cost is unknown.
func (r *GoogleSheetRepository) AppendInsightRow(ctx context.Context, snap models.InsightSnapshot) error {
	if snap.Insights.FarmID == "" || snap.Insights.BatchID == "" {
		return fmt.Errorf("insight row needs a farm and a batch")
	}
	if err := r.values.Append(ctx, insightsRange, insightRow(snap)); err != nil {
		return fmt.Errorf("append insight row for batch %s: %w", snap.Insights.BatchID, err)
	}

	r.logger.Debug("insight row appended",
		zap.String("farm_id", snap.Insights.FarmID),
		zap.String("batch_id", snap.Insights.BatchID))
	return nil
}

// ExportedBatches returns the batches that already have a row for day.
func (r *GoogleSheetRepository) ExportedBatches(ctx context.Context, day time.Time) (map[ExportKey]struct{}, error) {
	rows, err := r.values.Get(ctx, insightsRange)
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", insightsRange, err)
	}

	keys := make(map[ExportKey]struct{})
	want := day.Format(dateLayout)
	for _, row := range rows {
		if len(row) < 3 || fmt.Sprint(row[0]) != want {
			continue
		}
		keys[ExportKey{FarmID: fmt.Sprint(row[1]), BatchID: fmt.Sprint(row[2])}] = struct{}{}
	}
	return keys, nil
}

func insightRow(snap models.InsightSnapshot) []interface{} {
	in := snap.Insights
	cost := ""
	if in.DailyCost != nil {
		cost = fmt.Sprintf("%.2f", *in.DailyCost)
	}
	return []interface{}{
		snap.Date.Format(dateLayout),
		in.FarmID,
		in.BatchID,
		snap.BatchName,
		in.TargetedCount,
		fmt.Sprintf("%.3f", in.DailyConsumptionKg),
		cost,
	}
}

type apiValues struct {
	service       *sheetsapi.Service
	spreadsheetID string
}

func (a *apiValues) Append(ctx context.Context, sheetRange string, row []interface{}) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{row}}
	_, err := a.service.Spreadsheets.Values.Append(a.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (a *apiValues) Get(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	resp, err := a.service.Spreadsheets.Values.Get(a.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
