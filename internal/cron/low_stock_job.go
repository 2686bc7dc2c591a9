package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/wareline/wareline-backend/internal/stock"
	"github.com/wareline/wareline-backend/pkg/logger"
)

const defaultAlertRepeat = 24 * time.Hour

type lowStockLister interface {
	ListBelowReorder(ctx context.Context) ([]stock.LowStockRow, error)
}

// alertStore suppresses repeat alerts for the same product and warehouse.
type alertStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

// LowStockJobParams configure the low-stock monitor job.
type LowStockJobParams struct {
	Logger *logger.Logger
	Stock  lowStockLister
	Alerts alertStore
	Repeat time.Duration
}

// NewLowStockJob builds the job that scans stock levels against product
// reorder levels and logs shortages. When an alert store is provided, each
// shortage is reported at most once per repeat window.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	repeat := params.Repeat
	if repeat <= 0 {
		repeat = defaultAlertRepeat
	}
	return &lowStockJob{
		logg:   params.Logger,
		stock:  params.Stock,
		alerts: params.Alerts,
		repeat: repeat,
		now:    time.Now,
	}, nil
}

type lowStockJob struct {
	logg   *logger.Logger
	stock  lowStockLister
	alerts alertStore
	repeat time.Duration
	now    func() time.Time
}

func (j *lowStockJob) Name() string { return "low-stock-monitor" }

func (j *lowStockJob) Run(ctx context.Context) error {
	rows, err := j.stock.ListBelowReorder(ctx)
	if err != nil {
		return fmt.Errorf("scan stock levels: %w", err)
	}

	var errs []error
	alerted := 0
	stockouts := 0
	for _, row := range rows {
		fresh, err := j.claimAlert(ctx, row)
		if err != nil {
			errs = append(errs, fmt.Errorf("claim alert for %s: %w", row.SKU, err))
			continue
		}
		if !fresh {
			continue
		}
		if row.OnHand == 0 {
			stockouts++
		}
		alerted++
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"sku":           row.SKU,
			"product":       row.Name,
			"warehouse_id":  row.WarehouseID,
			"on_hand":       row.OnHand,
			"reserved":      row.Reserved,
			"reorder_level": row.ReorderLevel,
			"stockout":      row.OnHand == 0,
		})
		j.logg.Warn(logCtx, "stock below reorder level")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"below_reorder": len(rows),
		"alerted":       alerted,
		"stockouts":     stockouts,
	})
	j.logg.Info(logCtx, "low stock scan complete")
	return multierr.Combine(errs...)
}

// claimAlert returns true when this shortage has not been reported inside the
// repeat window. Without an alert store every shortage is reported each run.
func (j *lowStockJob) claimAlert(ctx context.Context, row stock.LowStockRow) (bool, error) {
	if j.alerts == nil {
		return true, nil
	}
	key := fmt.Sprintf("lowstock:%s:%s", row.ProductID, row.WarehouseID)
	return j.alerts.SetNX(ctx, key, j.now().UTC().Format(time.RFC3339), j.repeat)
}
