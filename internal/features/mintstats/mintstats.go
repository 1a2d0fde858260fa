// Package mintstats reports the top minting group of the trailing window.
package mintstats

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "irys-monitor/internal/infra/log"
	"irys-monitor/internal/jobs"
	"irys-monitor/internal/notify"

	"go.uber.org/zap"
)

const DefaultWindowSize = 24 * time.Hour

// MintStatsWindow is one aggregate row. Every field is text so that
// defaults can be substituted column by column.
type MintStatsWindow struct {
	TotalMints     string `json:"total_mints"`
	TopVerifier    string `json:"top_verifier"`
	VerifierCount  string `json:"verifier_count"`
	TopRef         string `json:"top_ref"`
	RefCount       string `json:"ref_count"`
	TopRecipient   string `json:"top_recipient"`
	RecipientCount string `json:"recipient_count"`
	WindowStart    string `json:"start_time"`
	WindowEnd      string `json:"end_time"`
}

// DefaultWindow is reported when no mint falls in the window.
func DefaultWindow() MintStatsWindow {
	return MintStatsWindow{
		TotalMints:     "0",
		TopVerifier:    "N/A",
		VerifierCount:  "0",
		TopRef:         "N/A",
		RefCount:       "0",
		TopRecipient:   "N/A",
		RecipientCount: "0",
		WindowStart:    "",
		WindowEnd:      "",
	}
}

// Store runs the aggregate query. A nil window means no rows matched.
type Store interface {
	TopMintGroup(ctx context.Context, start, end time.Time) (*MintStatsWindow, error)
	Close() error
}

// StoreFactory opens a store for one run.
type StoreFactory func(ctx context.Context) (Store, error)

// ChartFunc renders the window as an image attached to the report.
type ChartFunc func(w MintStatsWindow) ([]byte, error)

// Reporter is the mint statistics job.
type Reporter struct {
	NewStore StoreFactory
	Sink     notify.Sink
	Window   time.Duration
	Chart    ChartFunc
}

func (r *Reporter) Run(ctx context.Context, rc jobs.RunContext) (jobs.Result, error) {
	if r.NewStore == nil || r.Sink == nil {
		return jobs.Result{}, jobs.ConfigurationError("mint stats", errors.New("store and sink are required"))
	}

	end := rc.Timestamp
	if end.IsZero() {
		end = time.Now()
	}
	size := r.Window
	if size <= 0 {
		size = DefaultWindowSize
	}
	start := end.Add(-size)

	store, err := r.NewStore(ctx)
	if err != nil {
		return jobs.Result{}, jobs.FetchError("connect datastore", err)
	}
	defer store.Close()

	stats, err := r.fetch(ctx, store, start, end)
	if err != nil {
		return jobs.Result{}, err
	}

	message := notify.Text(FormatMessage(stats))
	if r.Chart != nil {
		if png, err := r.Chart(stats); err != nil {
			logging.LogWarn("Mint chart rendering failed", zap.String("task_id", rc.TaskID), zap.Error(err))
		} else {
			message.Attachment = &notify.Attachment{Name: "mint_stats.png", Data: png}
		}
	}

	if err := r.Sink.Send(ctx, message); err != nil {
		return jobs.Result{}, jobs.DeliveryError("notify", err)
	}
	return jobs.Result{TaskID: rc.TaskID, Message: message.Content}, nil
}

func (r *Reporter) fetch(ctx context.Context, store Store, start, end time.Time) (MintStatsWindow, error) {
	row, err := store.TopMintGroup(ctx, start, end)
	if err != nil {
		logging.LogError("Error fetching mint events", zap.Error(err))
		return MintStatsWindow{}, jobs.FetchError("fetch mint stats", err)
	}
	if row == nil {
		logging.LogInfo("No mint events in window",
			zap.Time("start", start.UTC()),
			zap.Time("end", end.UTC()))
		return DefaultWindow(), nil
	}
	return *row, nil
}

// FormatMessage renders the report. Field values are used as returned.
func FormatMessage(w MintStatsWindow) string {
	return fmt.Sprintf("📊 Mint Statistics:\n"+
		"Time Range: %s to %s\n"+
		"• Total Mints: %s\n"+
		"• Top Verifier: %s (%s mints)\n"+
		"• Top Ref: %s (%s mints)\n"+
		"• Top Recipient: %s (%s mints)",
		w.WindowStart, w.WindowEnd,
		w.TotalMints,
		w.TopVerifier, w.VerifierCount,
		w.TopRef, w.RefCount,
		w.TopRecipient, w.RecipientCount,
	)
}
