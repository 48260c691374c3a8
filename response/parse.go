// response/parse.go
package response

import "strings"

// parseHeader extracts the lower-cased main value of a header like Content-Type and its parameters.
func parseHeader(header string) (string, map[string]string) {
	mainValue, rest, _ := strings.Cut(header, ";")
	mainValue = strings.ToLower(strings.TrimSpace(mainValue))

	params := make(map[string]string)
	for _, part := range strings.Split(rest, ";") {
		k, v, ok := strings.Cut(part, "=")
		if ok {
			params[strings.ToLower(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), "\"")
		}
	}

	return mainValue, params
}
