// Package finance renders accounting vouchers for paid expense claims
package finance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/accounting"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// DefaultSheet is the sheet written when no template is configured
const DefaultSheet = "记账凭证"

// Cell layout of the voucher sheet
const (
	cellTitle         = "A1"
	cellCompany       = "B2"
	cellVoucherNo     = "D2"
	cellVoucherDate   = "B3"
	cellExpenseCode   = "D3"
	cellDebitSummary  = "A6"
	cellDebitSubject  = "B6"
	cellDebitAmount   = "C6"
	cellCreditSummary = "A7"
	cellCreditSubject = "B7"
	cellCreditAmount  = "D7"
	cellTotalLabel    = "A8"
	cellTotalWords    = "B8"
	cellTotalDebit    = "C8"
	cellTotalCredit   = "D8"
	cellAttachment    = "B10"
)

var headerRow = []interface{}{"摘要", "会计科目", "借方金额", "贷方金额"}

// ExcelRenderer writes one xlsx workbook per voucher into an output directory
type ExcelRenderer struct {
	outputDir    string
	companyName  string
	templatePath string
	logger       *zap.Logger
}

var _ port.VoucherRenderer = (*ExcelRenderer)(nil)

// NewExcelRenderer creates the renderer and its output directory. An empty
// templatePath builds the sheet from scratch.
func NewExcelRenderer(outputDir, companyName, templatePath string, logger *zap.Logger) (*ExcelRenderer, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("voucher output directory is required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create voucher directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ExcelRenderer{
		outputDir:    outputDir,
		companyName:  companyName,
		templatePath: templatePath,
		logger:       logger,
	}, nil
}

// Render fills the voucher sheet and saves it as <voucherNo>.xlsx
func (r *ExcelRenderer) Render(ctx context.Context, voucher *entity.Voucher, req *entity.ExpenseRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.logger.Info("Rendering voucher workbook",
		zap.String("voucher_no", voucher.VoucherNo),
		zap.Int64("expense_request_id", req.ID))

	f, sheet, err := r.open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	amount := voucher.TotalAmount.StringFixed(2)

	r.setCell(f, sheet, cellTitle, "记账凭证")
	r.setCell(f, sheet, cellCompany, r.companyName)
	r.setCell(f, sheet, cellVoucherNo, voucher.VoucherNo)
	r.setCell(f, sheet, cellVoucherDate, voucher.VoucherDate.Format("2006-01-02"))
	r.setCell(f, sheet, cellExpenseCode, req.Code)

	if err := f.SetSheetRow(sheet, "A5", &headerRow); err != nil {
		return "", fmt.Errorf("failed to write header row: %w", err)
	}

	r.setCell(f, sheet, cellDebitSummary, voucher.Summary)
	r.setCell(f, sheet, cellDebitSubject, voucher.DebitSubject)
	r.setCell(f, sheet, cellDebitAmount, amount)
	r.setCell(f, sheet, cellCreditSummary, voucher.Summary)
	r.setCell(f, sheet, cellCreditSubject, voucher.CreditSubject)
	r.setCell(f, sheet, cellCreditAmount, amount)

	r.setCell(f, sheet, cellTotalLabel, "合计")
	r.setCell(f, sheet, cellTotalWords, accounting.CapitalizeAmount(voucher.TotalAmount))
	r.setCell(f, sheet, cellTotalDebit, amount)
	r.setCell(f, sheet, cellTotalCredit, amount)

	if req.AttachmentRef != "" {
		r.setCell(f, sheet, cellAttachment, req.AttachmentRef)
	}

	outputPath := filepath.Join(r.outputDir, voucher.VoucherNo+".xlsx")
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save voucher workbook: %w", err)
	}

	r.logger.Info("Voucher workbook saved", zap.String("output_path", outputPath))
	return outputPath, nil
}

// open loads the template, or a new workbook with the default sheet
func (r *ExcelRenderer) open() (*excelize.File, string, error) {
	if r.templatePath != "" {
		f, err := excelize.OpenFile(r.templatePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open template: %w", err)
		}
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, "", fmt.Errorf("template has no sheets")
		}
		return f, sheets[0], nil
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", DefaultSheet); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to name voucher sheet: %w", err)
	}
	if err := f.MergeCell(DefaultSheet, "A1", "D1"); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to merge title cells: %w", err)
	}
	if err := f.SetColWidth(DefaultSheet, "A", "B", 32); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to size columns: %w", err)
	}
	return f, DefaultSheet, nil
}

// setCell sets a cell value in the workbook
func (r *ExcelRenderer) setCell(f *excelize.File, sheet, cell, value string) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
