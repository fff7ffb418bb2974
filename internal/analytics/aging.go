package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const dayMillis = 86_400_000

// Bucket names used in the aging report.
const (
	BucketCurrent    = "current"
	BucketDays1to30  = "days1to30"
	BucketDays31to60 = "days31to60"
	BucketDays61to90 = "days61to90"
	BucketOver90     = "over90"
)

// AgingBuckets sums open balances by how late they are.
type AgingBuckets struct {
	Current    decimal.Decimal `json:"current"`
	Days1to30  decimal.Decimal `json:"days1to30"`
	Days31to60 decimal.Decimal `json:"days31to60"`
	Days61to90 decimal.Decimal `json:"days61to90"`
	Over90     decimal.Decimal `json:"over90"`
}

// AgingEntry is one open invoice placed in its bucket.
type AgingEntry struct {
	OpenInvoice
	DaysOverdue int64  `json:"daysOverdue"`
	Bucket      string `json:"bucket"`
}

// PaymentAging is the result of getPaymentAging.
type PaymentAging struct {
	AsOf        time.Time       `json:"asOf"`
	Buckets     AgingBuckets    `json:"buckets"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Invoices    []AgingEntry    `json:"invoices"`
}

// DaysOverdue floors the elapsed milliseconds since due into whole days.
// Invoices not yet due yield zero or a negative count.
func DaysOverdue(now, due time.Time) int64 {
	ms := now.Sub(due).Milliseconds()
	days := ms / dayMillis
	if ms%dayMillis != 0 && ms < 0 {
		days--
	}
	return days
}

// BucketFor maps a days-overdue count to its bucket name.
func BucketFor(days int64) string {
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return BucketDays1to30
	case days <= 60:
		return BucketDays31to60
	case days <= 90:
		return BucketDays61to90
	default:
		return BucketOver90
	}
}

func (b *AgingBuckets) add(bucket string, amount decimal.Decimal) {
	switch bucket {
	case BucketCurrent:
		b.Current = b.Current.Add(amount)
	case BucketDays1to30:
		b.Days1to30 = b.Days1to30.Add(amount)
	case BucketDays31to60:
		b.Days31to60 = b.Days31to60.Add(amount)
	case BucketDays61to90:
		b.Days61to90 = b.Days61to90.Add(amount)
	default:
		b.Over90 = b.Over90.Add(amount)
	}
}

// BuildAging places every open invoice into exactly one bucket.
func BuildAging(now time.Time, invoices []OpenInvoice) PaymentAging {
	out := PaymentAging{AsOf: now, Invoices: make([]AgingEntry, 0, len(invoices))}
	for _, inv := range invoices {
		days := DaysOverdue(now, inv.DueDate)
		bucket := BucketFor(days)
		out.Buckets.add(bucket, inv.Balance)
		out.Outstanding = out.Outstanding.Add(inv.Balance)
		out.Invoices = append(out.Invoices, AgingEntry{OpenInvoice: inv, DaysOverdue: days, Bucket: bucket})
	}
	return out
}

// GetPaymentAging buckets the seller's open invoices as of now. The result is
// not cached because it moves with the clock.
func (s *Service) GetPaymentAging(ctx context.Context, sellerID int64) (PaymentAging, error) {
	invoices, err := s.repo.OpenInvoices(ctx, sellerID)
	if err != nil {
		return PaymentAging{}, err
	}
	return BuildAging(s.now(), invoices), nil
}
