package numbering

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// SKU builds a readable stock keeping unit such as "TSH-RED-00042". The
// variant fragment is omitted when variant is blank.
func SKU(name, variant string, seq int64) string {
	parts := []string{fragment(name, "ITM")}
	if strings.TrimSpace(variant) != "" {
		parts = append(parts, fragment(variant, "VAR"))
	}
	parts = append(parts, fmt.Sprintf("%05d", seq))
	return strings.Join(parts, "-")
}

// fragment keeps the first three ASCII letters or digits of s, upper-cased.
func fragment(s, fallback string) string {
	var b strings.Builder
	for _, r := range upper.String(s) {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// EAN13 renders a 13 digit barcode: a 3 digit prefix, the sequence padded to
// 9 digits, and the GS1 check digit.
func EAN13(prefix int, seq int64) (string, error) {
	if prefix < 0 || prefix > 999 {
		return "", fmt.Errorf("numbering: ean prefix %d out of range", prefix)
	}
	if seq < 0 || seq > 999_999_999 {
		return "", fmt.Errorf("numbering: ean sequence %d out of range", seq)
	}
	body := fmt.Sprintf("%03d%09d", prefix, seq)
	return body + strconv.Itoa(checkDigit(body)), nil
}

// ValidEAN13 reports whether code has 13 digits and a correct check digit.
func ValidEAN13(code string) bool {
	if len(code) != 13 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return checkDigit(code[:12]) == int(code[12]-'0')
}

func checkDigit(body string) int {
	sum := 0
	for i, r := range body {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}
