package budget

import (
	"fmt"
	"time"

	"irys-monitor/internal/jobs"

	"github.com/shopspring/decimal"
)

type FundingStatus int

const (
	FundingSkipped FundingStatus = iota
	FundingFunded
	FundingFailed
)

// FundingOutcome is the result of the threshold check and optional top-up.
type FundingOutcome struct {
	Status FundingStatus
	Amount decimal.Decimal
	TxID   string
	Reason string
	Err    error
}

func Funded(amount decimal.Decimal, txID string) FundingOutcome {
	return FundingOutcome{Status: FundingFunded, Amount: amount, TxID: txID}
}

func Skipped(reason string) FundingOutcome {
	return FundingOutcome{Status: FundingSkipped, Reason: reason}
}

func FundingFailure(err error) FundingOutcome {
	return FundingOutcome{Status: FundingFailed, Err: err}
}

// Line renders the outcome as one report line.
func (o FundingOutcome) Line(currency string) string {
	switch o.Status {
	case FundingFunded:
		return fmt.Sprintf("Successfully funded %s %s", o.Amount.String(), currency)
	case FundingFailed:
		return "Funding failed: " + jobs.DescribeError(o.Err)
	default:
		return "Balance is sufficient. No funding needed."
	}
}

// UploadOutcome is the result of the metadata upload step. Cost is kept when
// the quote succeeded even if the upload itself failed.
type UploadOutcome struct {
	Uploaded  bool
	ContentID string
	URL       string
	ByteSize  int
	Cost      decimal.Decimal
	Quoted    bool
	Elapsed   time.Duration
	Err       error
}

func (o UploadOutcome) Lines(currency string) []string {
	var lines []string
	if o.Quoted {
		lines = append(lines, fmt.Sprintf("Uploading JSON metadata (%d bytes) costs %s %s", o.ByteSize, o.Cost.String(), currency))
	}
	if !o.Uploaded {
		return append(lines, "Error uploading JSON metadata: "+jobs.DescribeError(o.Err))
	}
	return append(lines,
		"JSON metadata uploaded: "+o.URL,
		fmt.Sprintf("Upload time: %.2f seconds", o.Elapsed.Seconds()),
	)
}
