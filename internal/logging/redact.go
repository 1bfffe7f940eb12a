package logging

import (
	"net/url"
	"strings"
)

// Redacted replaces secret values in log output.
const Redacted = "REDACTED"

// RedactQuery replaces the values of the given query parameters in a request URI so that secrets such as the
// access secret never reach the logs. URIs that fail to parse are dropped to the path.
func RedactQuery(uri string, params ...string) string {
	path, rawQuery, found := strings.Cut(uri, "?")
	if !found {
		return uri
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return path
	}
	redacted := false
	for _, param := range params {
		if query.Has(param) {
			query.Set(param, Redacted)
			redacted = true
		}
	}
	if !redacted {
		return uri
	}
	return path + "?" + query.Encode()
}
