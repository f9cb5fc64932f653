package features

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)

	// vendor names hide after payment boilerplate in bank descriptions
	vendorAfterKeyword = regexp.MustCompile(
		`(?i)\b(?:payment\s+(?:to|from)|from|to|client|vendor|customer|bill\s+to)[\s:]+([A-Za-z0-9\s&.\-]+?)(?:\s+(?:ref|inv|invoice)\b.*)?$`)
	vendorBeforeSuffix = regexp.MustCompile(
		`(?i)^([A-Za-z0-9\s&.\-]+?)\s+(?:pvt|ltd|limited|inc|incorporated|llc)\b`)
	corpSuffix = regexp.MustCompile(`(?i)\s+(pvt|ltd|limited|inc|incorporated|llc)\.?$`)

	// invoice-number-shaped tokens: "invoice no: 123", "INV-2024-001", "AB-1234"
	invNumPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice\s*(?:no|number|#)?[\s:]*([A-Za-z][A-Za-z0-9\-/]*\d[A-Za-z0-9\-/]*)`),
		regexp.MustCompile(`(?i)\b(INV[-/]?[A-Za-z0-9\-]*\d)\b`),
		regexp.MustCompile(`\b([A-Z]{2,}[-/][0-9][0-9\-/]*)\b`),
	}
)

// TextSimilarity returns a [0,1] similarity between two free-text fields:
// the better of a normalized Levenshtein ratio and a token-set overlap, both
// over lowercased, punctuation-stripped text. Empty input scores 0.
func TextSimilarity(a, b string) float64 {
	na, nb := normalizeText(a), normalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	ratio := 1 - float64(dist)/float64(maxLen)
	if ratio < 0 {
		ratio = 0
	}

	if overlap := tokenOverlap(na, nb); overlap > ratio {
		return overlap
	}
	return ratio
}

// tokenOverlap is Jaccard similarity over whitespace tokens.
func tokenOverlap(na, nb string) float64 {
	ta := strings.Fields(na)
	tb := strings.Fields(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	union := len(set)
	common := 0
	for _, t := range tb {
		if set[t] {
			common++
			delete(set, t) // count each shared token once
		} else {
			union++
		}
	}
	return float64(common) / float64(union)
}

// tokenContainment scores how much of the (shorter) vendor string is present
// token-by-token inside the longer text. Tokens under 3 characters are
// ignored, they match too freely.
func tokenContainment(vendor, text string) float64 {
	vt := strings.Fields(normalizeText(vendor))
	nt := " " + normalizeText(text) + " "
	total, found := 0, 0
	for _, tok := range vt {
		if len(tok) < 3 {
			continue
		}
		total++
		if strings.Contains(nt, " "+tok+" ") {
			found++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(found) / float64(total)
}

func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func normalizeToken(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// extractVendor pulls a vendor-like substring out of a bank description,
// stripping payment boilerplate and corporate suffixes. Returns "" when
// nothing vendor-shaped is found.
func extractVendor(desc string) string {
	if desc == "" {
		return ""
	}
	for _, re := range []*regexp.Regexp{vendorAfterKeyword, vendorBeforeSuffix} {
		if m := re.FindStringSubmatch(desc); m != nil {
			v := strings.TrimSpace(corpSuffix.ReplaceAllString(m[1], ""))
			if len(v) >= 3 {
				return v
			}
		}
	}
	return ""
}

// extractInvoiceNumbers returns all invoice-number-shaped tokens in a
// description, normalized to upper case, in match order.
func extractInvoiceNumbers(desc string) []string {
	if desc == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, re := range invNumPatterns {
		for _, m := range re.FindAllStringSubmatch(desc, -1) {
			tok := normalizeToken(m[1])
			tok = strings.TrimRight(tok, "-/")
			if tok != "" && !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	return out
}
