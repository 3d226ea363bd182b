package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
)

// ExportFormat enumerates supported statement export encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered statement file.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the roster projection into downloadable statements.
type ExportService struct {
	ledgers  ledgerViewStore
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	price    float64
	currency string
}

// NewExportService constructs an ExportService.
func NewExportService(ledgers ledgerViewStore, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger, price float64, currency string) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{ledgers: ledgers, csv: csv, pdf: pdf, logger: logger, price: price, currency: currency}
}

var exportHeaders = []string{"Student", "Paid Sessions", "Unpaid Sessions", "Total Sessions", "Amount Paid", "Amount Due", "Amount Total", "Percent Paid", "Status"}

// ExportRoster renders the filtered roster projection in the given format.
func (s *ExportService) ExportRoster(ctx context.Context, filter models.RosterFilter, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	// exports always cover the full filtered roster, not one console page
	filter.Page = 1
	filter.PageSize = 200

	rows, _, err := s.ledgers.ListRoster(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list roster")
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		ledger := models.SessionLedger{
			StudentID:      row.StudentID,
			PaidSessions:   row.PaidSessions,
			UnpaidSessions: row.UnpaidSessions,
		}
		projection := Project(ledger, s.price)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":         row.StudentName,
			"Paid Sessions":   strconv.Itoa(row.PaidSessions),
			"Unpaid Sessions": strconv.Itoa(row.UnpaidSessions),
			"Total Sessions":  strconv.Itoa(projection.TotalSessions),
			"Amount Paid":     formatAmount(projection.AmountPaid, s.currency),
			"Amount Due":      formatAmount(projection.AmountDue, s.currency),
			"Amount Total":    formatAmount(projection.AmountTotal, s.currency),
			"Percent Paid":    fmt.Sprintf("%d%%", projection.PercentPaid),
			"Status":          string(projection.Status),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, "Session Ledger Statement")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Filename: fmt.Sprintf("ledger-statement-%s.pdf", stamp), ContentType: "application/pdf", Data: data}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Filename: fmt.Sprintf("ledger-statement-%s.csv", stamp), ContentType: "text/csv", Data: data}, nil
	}
}

func formatAmount(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}
