package greader

import (
	"fmt"
	"strconv"
	"strings"
)

const itemIDPrefix = "tag:google.com,2005:reader/item/"

// ParseItemID normalizes any of the dialect's three item-id spellings
// to the signed 64-bit value they encode: the long form
// "tag:google.com,2005:reader/item/{16-digit hex}", the bare 16-digit
// hex form, and the signed decimal form. Hex forms are unsigned
// two's-complement representations of the same value, which is why a
// large hex id corresponds to a negative decimal one.
func ParseItemID(id string) (int64, error) {
	if hex, ok := strings.CutPrefix(id, itemIDPrefix); ok {
		return parseHexID(hex)
	}
	if len(id) == 16 && isHex(id) {
		return parseHexID(id)
	}
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse item id %q: %w", id, err)
	}
	return parsed, nil
}

func parseHexID(hex string) (int64, error) {
	parsed, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse item id %q: %w", hex, err)
	}
	return int64(parsed), nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// FormatItemIDLong renders an item id in the long tag form used by
// stream items.
func FormatItemIDLong(id int64) string {
	return fmt.Sprintf("%s%016x", itemIDPrefix, uint64(id))
}

// FormatItemIDDecimal renders an item id in the signed decimal form
// used by item-id streams and accepted by edit-tag.
func FormatItemIDDecimal(id int64) string {
	return strconv.FormatInt(id, 10)
}
