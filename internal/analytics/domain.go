package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// Period selects the window of the dashboard summary.
type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
	Period12m Period = "12m"
	PeriodAll Period = "all"
)

// ParsePeriod validates a period, defaulting blank input to 30d.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(raw); p {
	case "":
		return Period30d, nil
	case Period7d, Period30d, Period90d, Period12m, PeriodAll:
		return p, nil
	default:
		return "", shared.BadRequest("period must be one of 7d 30d 90d 12m all")
	}
}

// Start returns the inclusive lower bound of the window ending at now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case Period7d:
		return now.AddDate(0, 0, -7)
	case Period30d:
		return now.AddDate(0, 0, -30)
	case Period90d:
		return now.AddDate(0, 0, -90)
	case Period12m:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Unix(0, 0).UTC()
	}
}

// Document names an aggregated document collection.
type Document string

const (
	DocumentPI      Document = "PI"
	DocumentPO      Document = "PO"
	DocumentInvoice Document = "INVOICE"
)

// StatusTotal is one status group of a document collection.
type StatusTotal struct {
	Status  string
	Count   int64
	Total   decimal.Decimal
	Paid    decimal.Decimal
	Balance decimal.Decimal
}

// DocumentSummary aggregates one collection within the summary window.
type DocumentSummary struct {
	Count    int64            `json:"count"`
	Total    decimal.Decimal  `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// InvoiceSummary adds settlement figures to the invoice aggregate.
type InvoiceSummary struct {
	DocumentSummary
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// DashboardSummary is the result of getDashboardSummary.
type DashboardSummary struct {
	Period   Period          `json:"period"`
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	PI       DocumentSummary `json:"proformaInvoices"`
	PO       DocumentSummary `json:"purchaseOrders"`
	Invoices InvoiceSummary  `json:"invoices"`
}

// PipelineStage is the count and value of PIs in one status.
type PipelineStage struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Value  decimal.Decimal `json:"value"`
}

// OpenInvoice is an invoice that still carries a balance.
type OpenInvoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	DueDate       time.Time       `json:"dueDate"`
	Balance       decimal.Decimal `json:"balanceAmount"`
}

// MonthAmount is a monthly sum keyed by "YYYY-MM".
type MonthAmount struct {
	Month  string
	Amount decimal.Decimal
}

// TrendPoint is one month of the revenue trend.
type TrendPoint struct {
	Month     string          `json:"month"`
	Invoiced  decimal.Decimal `json:"invoiced"`
	Collected decimal.Decimal `json:"collected"`
}

// ProductRevenue ranks a product by invoiced revenue.
type ProductRevenue struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}
