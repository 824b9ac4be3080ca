package mysql

import "strings"

// stringOrDash returns "-" when the input is empty/whitespace so the
// non-nullable text columns always get a value
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
