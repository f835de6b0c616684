package seminar

import "strings"

// NormalizeNumber cleans a user-entered Japanese phone number for the
// validation service: separators go (including the full-width dash and
// slash), full-width digits become ASCII, and a bare 11-digit mobile number
// gets the +81 country prefix. The validation service's cleansed E.164 output
// remains authoritative.
func NormalizeNumber(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', '/', 'ー', '／', ' ', '　':
			return -1
		}
		return hankaku(r)
	}, raw)

	if len(cleaned) == 11 && isDigits(cleaned) {
		cleaned = "+81" + cleaned
	}
	return cleaned
}

// EndpointID derives the canonical endpoint identifier from a cleansed E.164
// number: the number without its leading plus.
func EndpointID(cleansedE164 string) string {
	return strings.TrimPrefix(cleansedE164, "+")
}

// hankaku maps full-width alphanumerics to their ASCII equivalents.
func hankaku(r rune) rune {
	if (r >= 'Ａ' && r <= 'Ｚ') || (r >= 'ａ' && r <= 'ｚ') || (r >= '０' && r <= '９') {
		return r - 0xFEE0
	}
	return r
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
