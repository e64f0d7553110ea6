package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key joins a namespace and parameters into "ns:p1:p2".
func Key(namespace string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range params {
		b.WriteByte(':')
		fmt.Fprintf(&b, "%v", p)
	}
	return b.String()
}

// HashKey shortens free-form input into a stable key segment.
func HashKey(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:8])
}
