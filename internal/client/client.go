// Package client calls the sibling services the catalog depends on.
package client

import (
	"strings"
)

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
