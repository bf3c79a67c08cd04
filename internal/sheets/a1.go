package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a parsed A1 range. Columns are 0-based, rows 1-based. EndRow 0
// means "to the last row".
type Range struct {
	StartCol int
	EndCol   int
	StartRow int
	EndRow   int
}

// ParseRange parses ranges such as "A2:F", "B3:C10", "A:E" or "C5". The
// sheet is passed to Store methods separately, so a sheet-qualified range
// is rejected.
func ParseRange(a1 string) (Range, error) {
	a1 = strings.TrimSpace(a1)
	if strings.Contains(a1, "!") {
		return Range{}, fmt.Errorf("range %q must not name a sheet", a1)
	}
	if a1 == "" {
		return Range{}, fmt.Errorf("empty range")
	}

	startRef, endRef, hasEnd := strings.Cut(a1, ":")

	startCol, startRow, err := parseRef(startRef)
	if err != nil {
		return Range{}, err
	}
	if startRow == 0 {
		startRow = 1
	}

	if !hasEnd {
		return Range{StartCol: startCol, EndCol: startCol, StartRow: startRow, EndRow: startRow}, nil
	}

	endCol, endRow, err := parseRef(endRef)
	if err != nil {
		return Range{}, err
	}
	if endCol < startCol || (endRow != 0 && endRow < startRow) {
		return Range{}, fmt.Errorf("range %q is inverted", a1)
	}

	return Range{StartCol: startCol, EndCol: endCol, StartRow: startRow, EndRow: endRow}, nil
}

func parseRef(ref string) (col, row int, err error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}

	col = 0
	for _, c := range ref[:i] {
		col = col*26 + int(c-'A'+1)
	}
	col--

	if i < len(ref) {
		row, err = strconv.Atoi(ref[i:])
		if err != nil || row < 1 {
			return 0, 0, fmt.Errorf("invalid row in %q", ref)
		}
	}
	return col, row, nil
}

// ColumnLetter converts a 0-based column index to its letter name.
func ColumnLetter(col int) string {
	var name []byte
	for col++; col > 0; col = (col - 1) / 26 {
		name = append([]byte{byte('A' + (col-1)%26)}, name...)
	}
	return string(name)
}

// RowA1 returns the unqualified A1 range covering width cells of one row,
// the form Store.ReadRange expects.
func RowA1(row, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("A%d:%s%d", row, ColumnLetter(width-1), row)
}

// RowRange is RowA1 qualified with the sheet name, for direct API calls.
func RowRange(sheet string, row, width int) string {
	return SheetRange(sheet, RowA1(row, width))
}

// SheetRange qualifies an A1 range with a sheet name.
func SheetRange(sheet, a1 string) string {
	return fmt.Sprintf("%s!%s", quoteSheet(sheet), a1)
}

func quoteSheet(sheet string) string {
	if strings.ContainsAny(sheet, " '!") {
		return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet
}
