package services

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	importHeader     = "EXCHANGE,SYMBOL,NAME,QUANTITY,PRICE,TIMESTAMP"
	importTimeLayout = "2006-01-02T15:04:05"
)

// RowError describes one rejected data row.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ImportReport is the outcome of one bulk import. Success reflects only the
// structural validity of the feed (header present and correct); any number
// of data rows may still have been skipped.
type ImportReport struct {
	BatchID  string     `json:"batch_id"`
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Importer merges bulk position feeds into the position book. Rows
// accumulate shares with the same weighted-average math as a BUY but write
// no ledger entries, so imported holdings have no audit trail. Policy is
// continue-on-error: a bad row is reported and skipped, never fatal.
type Importer struct {
	book *Reconciler
	l    *zap.Logger
}

// NewImporter creates an Importer feeding the given reconciler.
func NewImporter(l *zap.Logger, book *Reconciler) *Importer {
	return &Importer{book: book, l: l}
}

// Import reads a CSV feed and merges its rows. The first line must be the
// exact six-column header (case-insensitive, whitespace-trimmed); a
// mismatch aborts the whole import before any row is read.
func (im *Importer) Import(r io.Reader) *ImportReport {
	report := &ImportReport{BatchID: uuid.New().String()}

	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		report.Message = "file is empty"
		report.Errors = append(report.Errors, RowError{Line: 1, Reason: "file contains no data"})
		return report
	}

	header := strings.TrimSpace(scanner.Text())
	if !strings.EqualFold(header, importHeader) {
		report.Message = "invalid feed format, expected header: " + importHeader
		report.Errors = append(report.Errors, RowError{Line: 1, Reason: fmt.Sprintf("invalid header %q", header)})
		return report
	}

	lineNumber := 1
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		// Blank and comment lines are skipped silently.
		if line == "" || strings.HasPrefix(line, "#") {
			report.Skipped++
			continue
		}

		if reason := im.mergeRow(line); reason != "" {
			report.Errors = append(report.Errors, RowError{Line: lineNumber, Reason: reason})
			report.Skipped++
			continue
		}

		report.Imported++
	}

	if err := scanner.Err(); err != nil {
		report.Message = "error reading feed: " + err.Error()
		report.Errors = append(report.Errors, RowError{Line: lineNumber, Reason: err.Error()})
		return report
	}

	report.Success = true
	report.Message = fmt.Sprintf("import completed: imported %d, skipped %d", report.Imported, report.Skipped)

	im.l.Info("positions imported",
		zap.String("batch_id", report.BatchID),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)))

	return report
}

// mergeRow parses and merges one data row, returning the rejection reason
// or "" on success.
func (im *Importer) mergeRow(line string) string {
	fields, err := splitRow(line)
	if err != nil {
		return "malformed row: " + err.Error()
	}
	if len(fields) != 6 {
		return fmt.Sprintf("invalid number of columns: expected 6, found %d", len(fields))
	}

	exchange := strings.TrimSpace(fields[0])
	symbol := strings.TrimSpace(fields[1])
	name := strings.TrimSpace(fields[2])
	quantityStr := strings.TrimSpace(fields[3])
	priceStr := strings.TrimSpace(fields[4])
	timestampStr := strings.TrimSpace(fields[5])

	if exchange != "NSE" && exchange != "BSE" {
		return fmt.Sprintf("invalid exchange %q, must be NSE or BSE", exchange)
	}

	quantity, err := strconv.ParseInt(quantityStr, 10, 64)
	if err != nil {
		return fmt.Sprintf("invalid quantity %q", quantityStr)
	}
	if quantity <= 0 {
		return "quantity must be positive"
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return fmt.Sprintf("invalid price %q", priceStr)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return "price must be positive"
	}

	// The timestamp is the one lenient field: unparseable values fall back
	// to the current time instead of rejecting the row.
	at, err := time.ParseInLocation(importTimeLayout, timestampStr, time.Local)
	if err != nil {
		at = time.Now()
	}

	if err := im.book.AccumulatePosition(symbol, name, quantity, price, at); err != nil {
		return "merge failed: " + err.Error()
	}

	return ""
}

// splitRow splits one comma-separated row, honoring double-quoted fields
// with embedded commas.
func splitRow(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.LazyQuotes = true
	return cr.Read()
}

// Export writes the position book in the same six-column format Import
// consumes. The exchange is derived from the symbol suffix; an empty book
// produces only the header and a comment line.
func (im *Importer) Export(w io.Writer) error {
	positions, err := im.book.Positions()
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, importHeader); err != nil {
		return err
	}

	if len(positions) == 0 {
		_, err := fmt.Fprintln(w, "# Portfolio is empty")
		return err
	}

	for i := range positions {
		pos := &positions[i]

		exchange := "BSE"
		if strings.Contains(pos.Symbol, ".NS") {
			exchange = "NSE"
		}

		// CSV quoting: a literal quote inside the quoted name doubles.
		name := strings.ReplaceAll(pos.Name, `"`, `""`)

		_, err := fmt.Fprintf(w, "%s,%s,\"%s\",%d,%s,%s\n",
			exchange,
			pos.Symbol,
			name,
			pos.Quantity,
			pos.AveragePrice.StringFixed(2),
			pos.LastUpdated.Format(importTimeLayout))
		if err != nil {
			return err
		}
	}

	return nil
}
