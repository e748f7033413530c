package utils

import (
	"net/url"
	"strconv"
)

// QueryInt parses an integer query parameter, falling back to def when the
// value is missing or not a number.
func QueryInt(q url.Values, key string, def int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return def
	}
	return n
}

// QueryBool reports whether a query parameter is an affirmative flag.
func QueryBool(q url.Values, key string) bool {
	switch q.Get(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}
