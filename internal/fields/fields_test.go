package fields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"01/01/2025", "2025-01-01"},
		{"12/31/2024", "2024-12-31"},
		{"1/5/2025", "2025-01-05"},
		{"2025-03-15", "2025-03-15"},
		{" 2025-03-15 ", "2025-03-15"},
		{"2025-03-15T10:30:00Z", "2025-03-15"},
		{"2025-03-15T10:30:00-05:00", "2025-03-15"},
		{"2025-03-15T10:30:00", "2025-03-15"},
		{"02/29/2024", "2024-02-29"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDate(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDate_RoundTripsEveryDayOfYear(t *testing.T) {
	for month := 1; month <= 12; month++ {
		for day := 1; day <= 28; day++ {
			us := twoDigits(month) + "/" + twoDigits(day) + "/2025"
			iso, err := ParseDate(us)
			require.NoError(t, err)
			assert.Equal(t, "2025-"+twoDigits(month)+"-"+twoDigits(day), iso)

			again, err := ParseDate(iso)
			require.NoError(t, err)
			assert.Equal(t, iso, again)
		}
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "13/01/2025", "02/30/2025", "2025/01/01"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
		assert.True(t, errors.Is(err, types.ErrFormat), in)
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("$1,250.50")
	require.NoError(t, err)
	assert.Equal(t, "1250.5", d.String())

	d, err = ParseAmount("2500")
	require.NoError(t, err)
	assert.Equal(t, "2500", d.String())

	_, err = ParseAmount("$abc")
	assert.ErrorIs(t, err, types.ErrFormat)

	_, err = ParseAmount("  ")
	assert.ErrorIs(t, err, types.ErrFormat)
}

func TestParseWholeAmount(t *testing.T) {
	n, err := ParseWholeAmount("$5,000.00")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), n)

	n, err = ParseWholeAmount("$9,223,372,036,854,775,807")
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), n)

	for _, in := range []string{"$5,000.50", "-$5,000", "-1", "$99,999,999,999,999,999,999", "9223372036854775808"} {
		_, err = ParseWholeAmount(in)
		assert.ErrorIs(t, err, types.ErrFormat, in)
	}
}

func TestParsePercentage(t *testing.T) {
	for _, in := range []string{"12.5%", "12.5", " 12.5 % "} {
		d, err := ParsePercentage(in)
		require.NoError(t, err, in)
		assert.Equal(t, "12.5", d.String(), in)
	}

	for _, in := range []string{"", "%", "twelve%"} {
		_, err := ParsePercentage(in)
		assert.ErrorIs(t, err, types.ErrFormat, in)
	}
}

func TestParseLimit(t *testing.T) {
	defaults := types.LimitSpec{Occurrence: 1000000, Aggregate: 2000000}

	cases := []struct {
		name string
		in   string
		want types.LimitSpec
	}{
		{"compound", "$1,000,000/$3,000,000", types.LimitSpec{Occurrence: 1000000, Aggregate: 3000000}},
		{"compound without symbols", "500000/1000000", types.LimitSpec{Occurrence: 500000, Aggregate: 1000000}},
		{"compound with spaces", "$2,000,000 / $4,000,000", types.LimitSpec{Occurrence: 2000000, Aggregate: 4000000}},
		{"single amount", "$5,000,000", types.LimitSpec{Occurrence: 5000000, Aggregate: 2000000}},
		{"empty", "", defaults},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLimit(tc.in, defaults)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLimit_Invalid(t *testing.T) {
	defaults := types.LimitSpec{Occurrence: 1, Aggregate: 2}

	for _, in := range []string{"$1M/$3M", "1000000/", "/3000000", "one million", "-$1,000,000/$2,000,000", "$99,999,999,999,999,999,999/$1"} {
		_, err := ParseLimit(in, defaults)
		assert.ErrorIs(t, err, types.ErrFormat, in)
	}
}

func TestIsRenewal(t *testing.T) {
	assert.True(t, IsRenewal("renewal"))
	assert.True(t, IsRenewal("RENEWAL"))
	assert.True(t, IsRenewal(" Renewal "))
	assert.False(t, IsRenewal("New"))
	assert.False(t, IsRenewal(""))
	assert.False(t, IsRenewal("renewals"))
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
