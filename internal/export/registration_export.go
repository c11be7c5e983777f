// Package export builds spreadsheet exports for the admin back office.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// RegistrationWorkbook renders seller registrations to an XLSX workbook with
// one row per registration, ordered the way the caller loaded them.
func RegistrationWorkbook(regs []model.SellerRegistration) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"registration_id",
		"applicant_name",
		"applicant_email",
		"farm_name",
		"farm_location",
		"store_name",
		"products_grown",
		"status",
		"submitted_at",
		"reviewed_at",
		"days_pending",
		"rejection_reason",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	now := time.Now()
	for i, reg := range regs {
		name := ""
		email := ""
		if reg.User != nil {
			name = reg.User.Name
			email = reg.User.Email
		}

		reviewedAt := ""
		if reg.ReviewedAt != nil {
			reviewedAt = reg.ReviewedAt.Format(time.RFC3339)
		}

		daysPending := 0
		if !reg.Status.Terminal() {
			daysPending = int(now.Sub(reg.SubmittedAt).Hours() / 24)
		}

		row := []interface{}{
			reg.ID,
			name,
			email,
			reg.FarmName,
			reg.FarmLocation,
			reg.StoreName,
			strings.Join(reg.ProductsGrown, ", "),
			string(reg.Status),
			reg.SubmittedAt.Format(time.RFC3339),
			reviewedAt,
			daysPending,
			reg.RejectionReason,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFileName returns a timestamped download name for a registrations export
func ExportFileName() string {
	return fmt.Sprintf("seller_registrations_%s.xlsx", time.Now().Format("20060102_150405"))
}
