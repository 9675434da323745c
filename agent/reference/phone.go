package reference

import "strings"

const minSuffixDigits = 10

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhonesMatch reports whether two numbers identify the same subscriber: equal
// after normalization, or one ends with the other's last 10 digits so country
// code prefixes are tolerated. Both sides need at least 10 digits for the
// suffix rule.
func PhonesMatch(a, b string) bool {
	na, nb := NormalizePhone(a), NormalizePhone(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if len(na) < minSuffixDigits || len(nb) < minSuffixDigits {
		return false
	}
	return strings.HasSuffix(na, lastDigits(nb, minSuffixDigits)) || strings.HasSuffix(nb, lastDigits(na, minSuffixDigits))
}

func lastDigits(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
