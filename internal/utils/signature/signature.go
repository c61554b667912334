package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Hash produces a stable, order-independent signature for a filter set.
// The value is marshaled, decoded into a map, and re-marshaled so the key
// order is canonical, and string-valued arrays are sorted so element order
// never changes the signature; two semantically identical filter sets always
// collide on the same signature.
func Hash(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal filter set: %w", err)
	}

	var canonical map[string]any
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return "", fmt.Errorf("failed to canonicalize filter set: %w", err)
	}
	normalize(canonical)

	// encoding/json writes map keys in sorted order.
	canonicalRaw, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to marshal canonical filter set: %w", err)
	}

	sum := sha256.Sum256(canonicalRaw)
	return hex.EncodeToString(sum[:16]), nil
}

// normalize sorts string-valued arrays in place, recursing into nested
// objects. Arrays holding anything but strings are left as supplied: their
// order may be meaningful.
func normalize(m map[string]any) {
	for _, v := range m {
		switch vv := v.(type) {
		case map[string]any:
			normalize(vv)
		case []any:
			sortStringSet(vv)
		}
	}
}

func sortStringSet(arr []any) {
	strs := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return
		}
		strs[i] = s
	}
	sort.Strings(strs)
	for i, s := range strs {
		arr[i] = s
	}
}
