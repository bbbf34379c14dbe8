package cache

import (
	"fmt"
	"strings"
)

// Key builds a deterministic cache key from an operation name and its
// arguments, so that identical logical queries collide on the same entry.
// Arguments are joined with ':'; occurrences of ':' inside an argument are
// escaped so distinct argument lists never produce the same key.
func Key(op string, args ...string) string {
	if len(args) == 0 {
		return op
	}

	var b strings.Builder
	b.WriteString(op)
	for _, arg := range args {
		b.WriteByte(':')
		b.WriteString(escapeKeyPart(arg))
	}
	return b.String()
}

func escapeKeyPart(s string) string {
	if !strings.ContainsAny(s, ":%") {
		return s
	}
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, ":", "%3A")
}

// TierKey namespaces a region key for the distributed tier.
func TierKey(region, key string) string {
	return fmt.Sprintf("%s:%s", region, key)
}

// validateRegionName rejects names that would break tier-key namespacing.
func validateRegionName(region string) error {
	if region == "" {
		return ErrInvalidRegion
	}
	if strings.ContainsAny(region, ":/\\") {
		return WrapError(ErrInvalidRegion, "region name contains invalid characters", nil)
	}
	return nil
}
