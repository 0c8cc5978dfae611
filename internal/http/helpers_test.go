package http

import "strings"

func containsLine(body, suffix string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasSuffix(line, suffix) {
			return true
		}
	}
	return false
}
