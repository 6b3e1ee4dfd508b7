package greader_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tidings/internal/greader"
)

func TestParseItemID_LongForm(t *testing.T) {
	id, err := greader.ParseItemID("tag:google.com,2005:reader/item/000000000000006f")
	require.NoError(t, err)
	require.Equal(t, int64(111), id)
}

func TestParseItemID_BareHex(t *testing.T) {
	id, err := greader.ParseItemID("000000000000006f")
	require.NoError(t, err)
	require.Equal(t, int64(111), id)
}

func TestParseItemID_Decimal(t *testing.T) {
	id, err := greader.ParseItemID("111")
	require.NoError(t, err)
	require.Equal(t, int64(111), id)
}

func TestParseItemID_NegativeDecimal(t *testing.T) {
	id, err := greader.ParseItemID("-355401917359550817")
	require.NoError(t, err)
	require.Equal(t, int64(-355401917359550817), id)
}

// Hex ids are the unsigned two's-complement spelling of the signed
// decimal form, so the high half of the hex space maps to negative
// decimals.
func TestParseItemID_HighHexIsNegative(t *testing.T) {
	id, err := greader.ParseItemID("tag:google.com,2005:reader/item/ffffffffffffffff")
	require.NoError(t, err)
	require.Equal(t, int64(-1), id)
}

func TestParseItemID_Garbage(t *testing.T) {
	_, err := greader.ParseItemID("not-an-id")
	require.Error(t, err)
}

func TestFormatItemID_RoundTrip(t *testing.T) {
	for _, id := range []int64{0, 111, -1, -355401917359550817} {
		parsed, err := greader.ParseItemID(greader.FormatItemIDLong(id))
		require.NoError(t, err)
		require.Equal(t, id, parsed)

		parsed, err = greader.ParseItemID(greader.FormatItemIDDecimal(id))
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	}
}

func TestFormatItemIDLong_PadsToSixteenDigits(t *testing.T) {
	require.Equal(t, "tag:google.com,2005:reader/item/000000000000006f", greader.FormatItemIDLong(111))
}
