package fixcol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatMarshalFixedColumn(t *testing.T) {
	for _, tt := range []struct {
		name      string
		value     Float
		width     int
		expected  string
		shouldErr bool
	}{
		{"zero fills the field", 0, 10, "0.00000000", false},
		{"positive", 3.14, 6, "3.1400", false},
		{"two integer digits", 99.5, 5, "99.50", false},
		{"negative", -1.5, 5, "-1.50", false},
		{"no room for decimals", 99.5, 3, "100", false},
		{"integer part does not fit", 123456, 3, "", true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.MarshalFixedColumn(tt.width)
			if tt.shouldErr {
				require.Error(t, err)
				assert.True(t, IsDataError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestFloatUnmarshalFixedColumn(t *testing.T) {
	var f Float
	require.NoError(t, f.UnmarshalFixedColumn([]byte("99.5")))
	assert.Equal(t, Float(99.5), f)

	f = 7
	require.NoError(t, f.UnmarshalFixedColumn(nil))
	assert.Equal(t, Float(0), f)

	err := f.UnmarshalFixedColumn([]byte("abc"))
	require.Error(t, err)
	assert.True(t, IsDataError(err))
}

func TestFloatFieldRoundTrip(t *testing.T) {
	type rec struct {
		Grade Float `fixcol:"width=10,align=right"`
	}

	data, err := Marshal(rec{Grade: 99.5})
	require.NoError(t, err)
	assert.Equal(t, "99.5000000\n", string(data))

	var out rec
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, Float(99.5), out.Grade)
}
