package email

import "strings"

// Normalize trims surrounding whitespace and lower-cases the domain part.
// The local part keeps its case; mail servers may treat it as significant.
func Normalize(address string) string {
	address = strings.TrimSpace(address)
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return address
	}
	return address[:at] + "@" + strings.ToLower(address[at+1:])
}
