package warehouse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

func TestEncodePadsRackAndShelf(t *testing.T) {
	require.Equal(t, "1-A-001-02-B3", Encode("1", "A", 1, 2, "B3"))
	require.Equal(t, "G-COLD-999-00-X", Encode("G", "COLD", 999, 0, "X"))
}

func TestDecomposeRoundTrip(t *testing.T) {
	codes := []string{"1-A-001-02-B3", "G-COLD-999-00-X", "MEZZ2-ZONE10-045-99-BIN0000001"}
	for _, code := range codes {
		loc, err := Decompose(code)
		require.NoError(t, err, code)
		require.Equal(t, code, loc.Code())
	}

	loc, err := Decompose("1-A-001-02-B3")
	require.NoError(t, err)
	require.Equal(t, Location{Floor: "1", Area: "A", Rack: 1, Shelf: 2, Bin: "B3"}, loc)
}

func TestEncodeDecomposeInverse(t *testing.T) {
	for rack := MinRack; rack <= MaxRack; rack += 97 {
		for shelf := MinShelf; shelf <= MaxShelf; shelf += 11 {
			loc := Location{Floor: "2", Area: "AB", Rack: rack, Shelf: shelf, Bin: "C9"}
			back, err := Decompose(loc.Code())
			require.NoError(t, err)
			require.Equal(t, loc, back)
		}
	}
}

func TestDecomposeRejectsMalformedCodes(t *testing.T) {
	bad := []string{
		"",
		"1-A-001-02",
		"1-A-001-02-B3-X",
		"1-a-001-02-B3",
		"1-A-1-02-B3",
		"1-A-000-02-B3",
		"1-A-001-2-B3",
		"1-A-001-02-",
		"1-A B-001-02-B3",
		"1-ABCDEFGHIJK-001-02-B3",
	}
	for _, code := range bad {
		_, err := Decompose(code)
		require.Error(t, err, code)
		require.True(t, errors.Is(err, shared.ErrBadRequest), code)
	}
}

func TestNormalizeLabel(t *testing.T) {
	label, err := NormalizeLabel("Bin code", "  b12 ")
	require.NoError(t, err)
	require.Equal(t, "B12", label)

	for _, raw := range []string{"", "A-1", "A_1", "ABCDEFGHIJK", "é"} {
		_, err := NormalizeLabel("Bin code", raw)
		require.ErrorIs(t, err, shared.ErrBadRequest, raw)
	}
}

func TestRangeChecks(t *testing.T) {
	require.NoError(t, ValidRack(1))
	require.NoError(t, ValidRack(999))
	require.ErrorIs(t, ValidRack(0), shared.ErrBadRequest)
	require.ErrorIs(t, ValidRack(1000), shared.ErrBadRequest)

	require.NoError(t, ValidShelf(0))
	require.NoError(t, ValidShelf(99))
	require.ErrorIs(t, ValidShelf(-1), shared.ErrBadRequest)
	require.ErrorIs(t, ValidShelf(100), shared.ErrBadRequest)
}
