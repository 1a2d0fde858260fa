// Package budget keeps the Irys prepaid balance above a threshold and reports
// the balance, the funding decision and the optional metadata upload.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"irys-monitor/internal/clients_api/irys"
	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/jobs"
	"irys-monitor/internal/notify"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the part of the Irys client the maintainer needs.
type Ledger interface {
	Currency() string
	Balance(ctx context.Context) (decimal.Decimal, error)
	Fund(ctx context.Context, amount decimal.Decimal) (irys.FundReceipt, error)
	Price(ctx context.Context, size int) (decimal.Decimal, error)
	Upload(ctx context.Context, data []byte, tags []irys.Tag) (irys.UploadReceipt, error)
}

// LedgerFactory builds a fresh ledger client for one run.
type LedgerFactory func(ctx context.Context) (Ledger, error)

// Policy holds the per-task parameters. Upload is nil when the task only
// maintains the balance.
type Policy struct {
	Threshold  decimal.Decimal
	FundAmount decimal.Decimal
	Upload     *UploadSpec
}

func (p Policy) Validate() error {
	if p.Threshold.IsNegative() {
		return fmt.Errorf("threshold must not be negative, got %s", p.Threshold)
	}
	if !p.FundAmount.IsPositive() {
		return fmt.Errorf("fund amount must be positive, got %s", p.FundAmount)
	}
	return nil
}

// Maintainer is the budget job.
type Maintainer struct {
	Policy    Policy
	NewLedger LedgerFactory
	Sink      notify.Sink
	// Now is used to time uploads; defaults to time.Now.
	Now func() time.Time
}

func (m *Maintainer) Run(ctx context.Context, rc jobs.RunContext) (jobs.Result, error) {
	if m.NewLedger == nil || m.Sink == nil {
		return jobs.Result{}, jobs.ConfigurationError("budget", errors.New("ledger and sink are required"))
	}
	if err := m.Policy.Validate(); err != nil {
		return jobs.Result{}, jobs.ConfigurationError("budget policy", err)
	}

	ledger, err := m.NewLedger(ctx)
	if err != nil {
		return jobs.Result{}, jobs.ConfigurationError("irys client", err)
	}
	currency := ledger.Currency()

	balance, err := ledger.Balance(ctx)
	if err != nil {
		return jobs.Result{}, jobs.FetchError("fetch balance", err)
	}
	log.LogInfo("Current Irys balance",
		zap.String("task_id", rc.TaskID),
		zap.String("balance", balance.String()),
		zap.String("currency", currency))

	lines := []string{fmt.Sprintf("Current Irys balance: %s %s", balance.String(), currency)}

	funding := m.decideFunding(ctx, ledger, balance)
	lines = append(lines, funding.Line(currency))

	if m.Policy.Upload != nil {
		upload := m.upload(ctx, ledger, m.Policy.Upload)
		lines = append(lines, upload.Lines(currency)...)
	}

	message := strings.Join(lines, "\n")
	if err := m.Sink.Send(ctx, notify.Text(message)); err != nil {
		return jobs.Result{}, jobs.DeliveryError("notify", err)
	}
	return jobs.Result{TaskID: rc.TaskID, Message: message}, nil
}

// decideFunding funds the fixed amount when balance is below the threshold.
// A funding error is reported, never returned.
func (m *Maintainer) decideFunding(ctx context.Context, ledger Ledger, balance decimal.Decimal) FundingOutcome {
	if !balance.LessThan(m.Policy.Threshold) {
		return Skipped("balance sufficient")
	}

	amount := m.Policy.FundAmount
	log.LogInfo("Balance below threshold, funding",
		zap.String("threshold", m.Policy.Threshold.String()),
		zap.String("amount", amount.String()))

	receipt, err := ledger.Fund(ctx, amount)
	if err != nil {
		log.LogError("Funding error", zap.Error(err))
		return FundingFailure(jobs.ActionError("fund", err))
	}
	log.LogSuccess("Funded Irys balance", zap.String("tx_id", receipt.TxID), zap.String("amount", amount.String()))
	return Funded(amount, receipt.TxID)
}

func (m *Maintainer) upload(ctx context.Context, ledger Ledger, up *UploadSpec) UploadOutcome {
	var out UploadOutcome

	data, err := up.Payload()
	if err != nil {
		out.Err = jobs.ActionError("upload", err)
		return out
	}
	out.ByteSize = len(data)

	price, err := ledger.Price(ctx, out.ByteSize)
	if err != nil {
		log.LogError("Error uploading metadata", zap.Error(err))
		out.Err = jobs.ActionError("price", err)
		return out
	}
	out.Cost = price
	out.Quoted = true
	log.LogInfo("Upload price quoted", zap.Int("bytes", out.ByteSize), zap.String("cost", price.String()))

	now := m.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	receipt, err := ledger.Upload(ctx, data, up.Tags)
	if err != nil {
		log.LogError("Error uploading metadata", zap.Error(err))
		out.Err = jobs.ActionError("upload", err)
		return out
	}
	out.Elapsed = now().Sub(start)
	out.Uploaded = true
	out.ContentID = receipt.ID
	out.URL = up.contentURL(receipt.ID)
	log.LogSuccess("Metadata uploaded", zap.String("url", out.URL), zap.Duration("elapsed", out.Elapsed))
	return out
}
