package utils

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile("[^a-z0-9]+")

func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// TableSlug turns a display name into a SQL-safe identifier
// ("Purchase Orders" -> "purchase_orders").
func TableSlug(s string) string {
	return strings.ReplaceAll(Slugify(s), "-", "_")
}
