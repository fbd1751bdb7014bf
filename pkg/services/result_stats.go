package services

import (
	"math"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ColumnStats summarizes the numeric values of one result column.
type ColumnStats struct {
	Column   string
	Count    int
	Min      decimal.Decimal
	Max      decimal.Decimal
	Avg      decimal.Decimal
	Currency bool
}

// currencyPrinter renders amounts with en-US grouping.
var currencyPrinter = message.NewPrinter(language.AmericanEnglish)

// ParseNumber coerces a driver or JSON value to a decimal. Strings may carry
// thousands separators in either convention ("1.234,56" or "1,234.56") and a
// currency symbol. ok is false when v is not numeric.
func ParseNumber(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil, bool:
		return decimal.Decimal{}, false
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint8:
		return decimal.NewFromInt(int64(n)), true
	case uint16:
		return decimal.NewFromInt(int64(n)), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		if n > math.MaxInt64 {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromInt(int64(n)), true
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case decimal.Decimal:
		return n, true
	case pgtype.Numeric:
		if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromBigInt(n.Int, n.Exp), true
	case string:
		return parseNumericString(n)
	case []byte:
		return parseNumericString(string(n))
	default:
		return decimal.Decimal{}, false
	}
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

// parseNumericString reads locale-formatted numbers. When both separators
// appear, the last one is the decimal point. A lone comma followed by exactly
// three digits, or a repeated separator, is a thousands separator. A single
// dot is always a decimal point.
func parseNumericString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", "€", "", "£", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	sign := ""
	if s[0] == '-' || s[0] == '+' {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	if s == "" {
		return decimal.Decimal{}, false
	}

	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == ',':
		default:
			return decimal.Decimal{}, false
		}
	}
	if digits == 0 {
		return decimal.Decimal{}, false
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case commas == 1:
		if len(s)-strings.Index(s, ",")-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	if strings.Count(s, ".") > 1 {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(sign + s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// FormatCurrency renders d as whole US dollars: "$1,235", "-$40".
func FormatCurrency(d decimal.Decimal) string {
	rounded := d.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + currencyPrinter.Sprintf("$%d", rounded.IntPart())
}

// IsCurrencyColumn reports whether the column name contains one of hints.
func IsCurrencyColumn(name string, hints []string) bool {
	lower := strings.ToLower(name)
	for _, h := range hints {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// ComputeColumnStats summarizes every column with at least one numeric value,
// in column order. When columns is empty, the row keys are used in sorted
// order.
func ComputeColumnStats(rows []map[string]any, columns []string, currencyHints []string) []ColumnStats {
	if len(columns) == 0 {
		columns = rowKeys(rows)
	}

	var stats []ColumnStats
	for _, col := range columns {
		s := ColumnStats{Column: col}
		sum := decimal.Zero
		for _, row := range rows {
			d, ok := ParseNumber(row[col])
			if !ok {
				continue
			}
			if s.Count == 0 || d.LessThan(s.Min) {
				s.Min = d
			}
			if s.Count == 0 || d.GreaterThan(s.Max) {
				s.Max = d
			}
			sum = sum.Add(d)
			s.Count++
		}
		if s.Count == 0 {
			continue
		}
		s.Avg = sum.Div(decimal.NewFromInt(int64(s.Count)))
		s.Currency = IsCurrencyColumn(col, currencyHints)
		stats = append(stats, s)
	}
	return stats
}

func rowKeys(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
