// Package ledger persists every order into an append-only spreadsheet
// workbook. Rows are never reordered or deleted; after a row is appended
// the only cell that ever changes again is its status column.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"triton-orders/internal/models"
	"triton-orders/internal/util"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	sheetName    = "All Orders"
	headerRow    = 3
	firstDataRow = 4
	statusCol    = "K"
	lastCol      = "K"
)

// DateLayout is the display form written to the Date & Time column.
const DateLayout = "2 Jan 2006, 3:04 pm"

var columnHeaders = []string{
	"Order Number",
	"Date & Time",
	"Customer Name",
	"Phone",
	"Email",
	"Order Type",
	"Delivery Address",
	"Items Ordered",
	"Special Instructions",
	"Total (₹)",
	"Status",
}

var columnWidths = []float64{20, 18, 20, 15, 25, 12, 30, 35, 30, 12, 12}

// Row is a ledger row read back during a replay, carrying just the fields
// the stats rebuild needs.
type Row struct {
	OrderNumber string
	Date        string
	Total       int64
	Status      string
	RowNumber   int
}

// Store is the append-only order ledger backed by an xlsx workbook.
// The workbook is reopened on every operation; the mutex makes each
// open-modify-save cycle a critical section.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// New creates a ledger store for the workbook at path.
func New(path string) *Store {
	return &Store{
		path:   path,
		logger: util.GetLogger(),
	}
}

// Path returns the workbook location on disk.
func (s *Store) Path() string {
	return s.path
}

// Initialize creates the data directory and the workbook with its title,
// tagline and header rows. It is idempotent: an existing workbook is left
// untouched.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", models.ErrStorageInit, err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return nil
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageInit, err)
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("%w: %v", models.ErrStorageInit, err)
		}
	}

	if err := writeBanner(f); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageInit, err)
	}
	if err := writeHeader(f); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageInit, err)
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageInit, err)
	}

	s.logger.Info("Ledger workbook initialized", zap.String("path", s.path))
	return nil
}

// Append writes the order's creation-time snapshot as the next row and
// returns its row number, the handle for later status updates. Existing
// rows are never touched.
func (s *Store) Append(ctx context.Context, order *models.Order) (int, error) {
	_, span := util.StartSpan(ctx, "ledger.Append")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("%w: open workbook: %v", models.ErrStorageWrite, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	rowNum := len(rows) + 1
	if rowNum < firstDataRow {
		rowNum = firstDataRow
	}

	cells := []interface{}{
		order.OrderNumber,
		order.Date,
		order.CustomerName,
		order.Phone,
		order.Email,
		strings.ToUpper(order.OrderType),
		order.DeliveryAddress,
		order.ItemsText(),
		order.SpecialInstructions,
		order.Total,
		strings.ToUpper(models.StatusPending),
	}
	anchor := fmt.Sprintf("A%d", rowNum)
	if err := f.SetSheetRow(sheetName, anchor, &cells); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}

	if err := styleDataRow(f, rowNum); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}

	if err := f.Save(); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}

	s.logger.Info("Order appended to ledger",
		zap.String("order_number", order.OrderNumber),
		zap.Int("row", rowNum),
		zap.Int64("total", order.Total))
	return rowNum, nil
}

// UpdateStatus rewrites the status cell of one existing row, leaving every
// other cell untouched. The row handle is used when it still matches the
// order number; otherwise the order-number column is scanned.
func (s *Store) UpdateStatus(ctx context.Context, row int, orderNumber, status string) error {
	_, span := util.StartSpan(ctx, "ledger.UpdateStatus")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: open workbook: %v", models.ErrStorageWrite, err)
	}
	defer f.Close()

	target, err := s.resolveRow(f, row, orderNumber)
	if err != nil {
		return err
	}

	cell := fmt.Sprintf("%s%d", statusCol, target)
	if err := f.SetCellStr(sheetName, cell, strings.ToUpper(status)); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	if err := styleStatusCell(f, target, status); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}

	s.logger.Info("Ledger status updated",
		zap.String("order_number", orderNumber),
		zap.Int("row", target),
		zap.String("status", status))
	return nil
}

// resolveRow finds the row holding orderNumber: O(1) via the handle when it
// still matches, O(n) scan of column A as the fallback.
func (s *Store) resolveRow(f *excelize.File, row int, orderNumber string) (int, error) {
	if row >= firstDataRow {
		val, err := f.GetCellValue(sheetName, fmt.Sprintf("A%d", row))
		if err == nil && val == orderNumber {
			return row, nil
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	for i := firstDataRow - 1; i < len(rows); i++ {
		if len(rows[i]) > 0 && rows[i][0] == orderNumber {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", models.ErrRowNotFound, orderNumber)
}

// ExportSnapshot returns the whole workbook as a byte stream, reflecting
// every write made so far.
func (s *Store) ExportSnapshot(ctx context.Context) ([]byte, error) {
	_, span := util.StartSpan(ctx, "ledger.ExportSnapshot")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("%w: ledger workbook does not exist", models.ErrRowNotFound)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", models.ErrStorageWrite, err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	return buf.Bytes(), nil
}

// Replay reads every data row back in creation order. It feeds the stats
// rebuild tool; malformed totals are reported, not skipped silently.
func (s *Store) Replay(ctx context.Context) ([]Row, error) {
	_, span := util.StartSpan(ctx, "ledger.Replay")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", models.ErrStorageWrite, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}

	var out []Row
	for i := firstDataRow - 1; i < len(rows); i++ {
		cells := rows[i]
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		r := Row{OrderNumber: cells[0], RowNumber: i + 1}
		if len(cells) > 1 {
			r.Date = cells[1]
		}
		if len(cells) > 9 {
			total, err := strconv.ParseInt(cells[9], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad total %q: %w", i+1, cells[9], err)
			}
			r.Total = total
		}
		if len(cells) > 10 {
			r.Status = strings.ToLower(cells[10])
		}
		out = append(out, r)
	}
	return out, nil
}

func writeBanner(f *excelize.File) error {
	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return err
	}
	if err := f.SetCellStr(sheetName, "A1", "TRITON RESTAURANT - MASTER ORDER LOG"); err != nil {
		return err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 18, Bold: true, Color: "2B4162"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F5F1E8"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", titleStyle); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheetName, 1, 35); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A2", lastCol+"2"); err != nil {
		return err
	}
	if err := f.SetCellStr(sheetName, "A2", "Where Mediterranean heritage meets global flavors"); err != nil {
		return err
	}
	taglineStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10, Italic: true, Color: "6B6B6B"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A2", "A2", taglineStyle); err != nil {
		return err
	}
	return f.SetRowHeight(sheetName, 2, 20)
}

func writeHeader(f *excelize.File) error {
	row := make([]interface{}, len(columnHeaders))
	for i, h := range columnHeaders {
		row[i] = h
	}
	anchor := fmt.Sprintf("A%d", headerRow)
	if err := f.SetSheetRow(sheetName, anchor, &row); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D4AF37"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "top", Style: 2, Color: "000000"},
			{Type: "bottom", Style: 2, Color: "000000"},
			{Type: "left", Style: 1, Color: "000000"},
			{Type: "right", Style: 1, Color: "000000"},
		},
	})
	if err != nil {
		return err
	}
	hRange := fmt.Sprintf("A%d", headerRow)
	if err := f.SetCellStyle(sheetName, hRange, fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle); err != nil {
		return err
	}
	return f.SetRowHeight(sheetName, headerRow, 25)
}

func styleDataRow(f *excelize.File, row int) error {
	fill := []string{"FFFFFF"}
	if row%2 == 0 {
		fill = []string{"F5F1E8"}
	}
	border := []excelize.Border{
		{Type: "top", Style: 1, Color: "E8DFD0"},
		{Type: "bottom", Style: 1, Color: "E8DFD0"},
		{Type: "left", Style: 1, Color: "E8DFD0"},
		{Type: "right", Style: 1, Color: "E8DFD0"},
	}

	base, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: fill},
		Border: border,
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), base); err != nil {
		return err
	}

	wrapped, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: fill},
		Border:    border,
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}
	for _, col := range []string{"H", "I"} {
		cell := fmt.Sprintf("%s%d", col, row)
		if err := f.SetCellStyle(sheetName, cell, cell, wrapped); err != nil {
			return err
		}
	}

	centered, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: fill},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("F%d", row), fmt.Sprintf("F%d", row), centered); err != nil {
		return err
	}

	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: fill},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("J%d", row), fmt.Sprintf("J%d", row), totalStyle); err != nil {
		return err
	}

	if err := styleStatusCell(f, row, models.StatusPending); err != nil {
		return err
	}
	return f.SetRowHeight(sheetName, row, 60)
}

// styleStatusCell renders the status column: orange while pending, green
// once completed.
func styleStatusCell(f *excelize.File, row int, status string) error {
	color := "FFA500"
	if status == models.StatusCompleted {
		color = "28A745"
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "top", Style: 1, Color: "E8DFD0"},
			{Type: "bottom", Style: 1, Color: "E8DFD0"},
			{Type: "left", Style: 1, Color: "E8DFD0"},
			{Type: "right", Style: 1, Color: "E8DFD0"},
		},
	})
	if err != nil {
		return err
	}
	cell := fmt.Sprintf("%s%d", statusCol, row)
	return f.SetCellStyle(sheetName, cell, cell, style)
}
