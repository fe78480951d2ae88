package pricing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"laundry_ledger/pkg/apperrors"
)

// Input is a user-entered numeric field. JSON bodies may carry it as a string ("5,00", "15%")
// or as a plain number.
type Input string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (in *Input) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*in = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = Input(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("numeric field must be a string or a number: %w", err)
		}
		// exponent forms such as 1e3 are expanded to plain decimals
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return fmt.Errorf("numeric field must be a string or a number: %w", err)
		}
		*in = Input(d.String())
	}
	return nil
}

// String returns the raw text.
func (in Input) String() string {
	return string(in)
}

// ParseMoney parses a monetary amount written with either a comma or a dot as decimal
// separator ("1.234,56", "29,90", "18.00", "R$ 5"). When a comma is present, dots are
// thousand separators. When several dots remain the last one is the decimal separator.
// Exponent notation is rejected.
func ParseMoney(raw string) (decimal.Decimal, error) {
	if strings.ContainsAny(raw, "eE") {
		return decimal.Zero, apperrors.NewParseError(fmt.Sprintf("invalid amount %q", raw))
	}
	s := normalizeMoney(raw)
	if s == "" {
		return decimal.Zero, apperrors.NewParseError(fmt.Sprintf("invalid amount %q", raw))
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperrors.NewParseError(fmt.Sprintf("invalid amount %q", raw))
	}
	return d.Round(Scale), nil
}

func normalizeMoney(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case (r >= '0' && r <= '9') || r == ',' || r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "-" {
		return ""
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.Count(s, ".") > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}
	return s
}

// ParsePercent parses a percentage without its % marker and clamps it to [0, 100].
func ParsePercent(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperrors.NewParseError(fmt.Sprintf("invalid percentage %q", raw))
	}
	return ClampPercent(d).Round(Scale), nil
}

// ParseAdjustment parses a discount or surcharge field. A trailing % selects the percent
// form; anything else is a fixed amount. An empty field is a zero adjustment.
func ParseAdjustment(raw string) (Adjustment, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Adjustment{}, nil
	}

	if strings.HasSuffix(s, "%") {
		p, err := ParsePercent(strings.TrimSuffix(s, "%"))
		if err != nil {
			return Adjustment{}, err
		}
		return Adjustment{Percent: p}, nil
	}

	amount, err := ParseMoney(s)
	if err != nil {
		return Adjustment{}, err
	}
	return Adjustment{Fixed: amount}, nil
}

// ParseQuantity parses an item quantity.
func ParseQuantity(raw string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.NewParseError(fmt.Sprintf("invalid quantity %q", raw))
	}
	return q, nil
}

// FormatAdjustment renders an adjustment back into the form ParseAdjustment accepts.
func FormatAdjustment(a Adjustment) string {
	if a.Percent.IsPositive() {
		return a.Percent.String() + "%"
	}
	return a.Fixed.StringFixed(2)
}
