package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

var errLegacySpreadsheet = errors.New("legacy .xls workbooks are not supported, save as .xlsx")

// renderTable lays out rows as a right-aligned grid. The first row is the
// header; data rows are prefixed with their zero-based index.
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)

	writeRow := func(index string, cells []string) {
		fmt.Fprint(w, index, "\t")
		for _, c := range cells {
			fmt.Fprint(w, strings.ReplaceAll(c, "\n", " "), "\t")
		}
		fmt.Fprintln(w)
	}

	writeRow("", rows[0])
	for i, row := range rows[1:] {
		writeRow(strconv.Itoa(i), row)
	}
	w.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

func csvText(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		rows = append(rows, rec)
	}
	return renderTable(rows), nil
}

// xlsxText renders every sheet of the workbook under a "Sheet: <name>" line.
func xlsxText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	var parts []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: sheet %s: %v", ErrUnreadable, sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		parts = append(parts, "Sheet: "+sheet+"\n"+renderTable(rows))
	}
	return strings.Join(parts, "\n\n"), nil
}

func legacyXLS(data []byte) (string, error) {
	return "", fmt.Errorf("%w: %v", ErrUnreadable, errLegacySpreadsheet)
}

// jsonText re-serialises a JSON document with two-space indentation, keeping key order.
func jsonText(data []byte) (string, error) {
	if !json.Valid(data) {
		return "", fmt.Errorf("%w: invalid JSON", ErrUnreadable)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "  "); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return buf.String(), nil
}
