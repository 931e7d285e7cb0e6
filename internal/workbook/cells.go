package workbook

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// NormalizeAmount converts an amount written with "." thousands separators
// and a "," decimal separator ("1.234,56") into a decimal. Anything that does
// not parse afterwards is treated as zero.
func NormalizeAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '\u00a0', '\'':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Amount reads a monetary cell. Numeric cells are taken as stored; text cells
// go through NormalizeAmount.
func Amount(c Cell) decimal.Decimal {
	if c.Numeric {
		if d, err := decimal.NewFromString(strings.TrimSpace(c.Raw)); err == nil {
			return d
		}
	}
	return NormalizeAmount(c.Value)
}

// Date reads a date cell. Numeric cells are Excel serial dates; text cells are
// tried against layouts in order. The zero civil.Date is returned when nothing
// parses.
func Date(c Cell, layouts ...string) civil.Date {
	if c.Numeric {
		if serial, ok := parseFloat(c.Raw); ok {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return civil.DateOf(t)
			}
		}
	}
	text := strings.TrimSpace(c.Value)
	if text == "" {
		return civil.Date{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return civil.DateOf(t)
		}
	}
	return civil.Date{}
}

// DateValue converts a date to the value written into a cell: a UTC midnight
// time for valid dates, nil (an empty cell) otherwise.
func DateValue(d civil.Date) interface{} {
	if !d.IsValid() {
		return nil
	}
	return d.In(time.UTC)
}
