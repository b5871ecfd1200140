// Package phone normalises Indonesian mobile numbers to the international
// form the WhatsApp gateway expects.
package phone

import "strings"

// CountryCode is prefixed to local mobile numbers.
const CountryCode = "62"

// Normalize applies two rules in order:
//
//  1. a leading '0' is dropped ("0812..." -> "812...")
//  2. a result starting with '8' gets the country code ("812..." -> "62812...")
//
// Anything else is returned as given (after trimming spaces), so "+62812"
// and "12345" pass through untouched. Empty input returns "".
func Normalize(raw string) string {
	n := strings.TrimSpace(raw)
	n = strings.TrimPrefix(n, "0")
	if strings.HasPrefix(n, "8") {
		n = CountryCode + n
	}
	return n
}
