// Package record defines the financial records the reconciliation engine
// operates on: invoice line items and bank transactions, already parsed and
// typed by the extraction layer.
//
// Amounts are carried as signed integer minor currency units (cents). The
// engine never does float arithmetic on money; decimal strings are parsed
// exactly at the boundary.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source identifies which side of the reconciliation a record came from.
type Source string

const (
	SourceInvoice Source = "invoice"
	SourceBank    Source = "bank"
)

// Record is one invoice line item or bank transaction. Records are owned by
// the extraction layer and are immutable once constructed; the engine keeps
// references (indices into the input slices), never copies.
type Record struct {
	Source          Source
	Description     string
	AmountCents     int64      // signed minor currency units
	Date            *time.Time // nil when the extractor could not recover a date
	VendorName      string     // empty when unknown
	ReferenceNumber string     // empty when unknown
	InvoiceNumber   string     // empty when unknown (invoices usually carry one)
	Currency        string
}

// HasDate reports whether the record carries a usable calendar date.
func (r Record) HasDate() bool {
	return r.Date != nil
}

// AbsAmountCents returns the magnitude of the amount. Bank feeds report
// debits as negative; reconciliation compares magnitudes.
func (r Record) AbsAmountCents() int64 {
	if r.AmountCents < 0 {
		return -r.AmountCents
	}
	return r.AmountCents
}

// ErrBadAmount is returned by ParseAmount for input that is not a plain
// decimal amount.
var ErrBadAmount = errors.New("malformed amount")

// ParseAmount parses a decimal string like "100.00", "-42.5" or "$1,250"
// into signed cents without going through a float. At most two fraction
// digits are accepted; a lone sign or empty string is rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadAmount)
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, fmt.Errorf("%w: sign only", ErrBadAmount)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: more than two fraction digits in %q", ErrBadAmount, s)
	}
	// pad "5" -> "50" so tens of cents parse correctly
	for len(frac) < 2 {
		frac += "0"
	}

	if whole == "" {
		whole = "0"
	}
	var cents int64
	for _, c := range whole {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrBadAmount, s)
		}
		cents = cents*10 + int64(c-'0')
	}
	cents *= 100
	var fracCents int64
	for _, c := range frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrBadAmount, s)
		}
		fracCents = fracCents*10 + int64(c-'0')
	}
	cents += fracCents

	if neg {
		cents = -cents
	}
	return cents, nil
}

// FormatCents renders signed cents as a decimal string with two fraction
// digits, e.g. -12345 -> "-123.45".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
