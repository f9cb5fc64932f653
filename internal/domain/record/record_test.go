package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconly/reconcile-backend/internal/domain/record"
)

func TestParseAmount(t *testing.T) {
	t.Run("parses exact decimal strings", func(t *testing.T) {
		cases := []struct {
			in   string
			want int64
		}{
			{"1500.00", 150000},
			{"1500", 150000},
			{"0.01", 1},
			{"0.1", 10},
			{"0", 0},
			{"-42.50", -4250},
			{"+3.33", 333},
			{" 12.00 ", 1200},
			{"$1,500.00", 150000},
			{"0.10", 10},
			{"999999999.99", 99999999999},
		}
		for _, c := range cases {
			got, err := record.ParseAmount(c.in)
			require.NoError(t, err, "input %q", c.in)
			assert.Equal(t, c.want, got, "input %q", c.in)
		}
	})

	t.Run("rejects malformed amounts", func(t *testing.T) {
		for _, in := range []string{"", "abc", "1.2.3", "1.234", "--5", "-", "12 34"} {
			_, err := record.ParseAmount(in)
			assert.ErrorIs(t, err, record.ErrBadAmount, "input %q", in)
		}
	})

	t.Run("never round-trips through floats", func(t *testing.T) {
		// 0.1 + 0.2 style inputs must come out exact.
		got, err := record.ParseAmount("1234567.89")
		require.NoError(t, err)
		assert.Equal(t, int64(123456789), got)
	})
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "1500.00", record.FormatCents(150000))
	assert.Equal(t, "0.01", record.FormatCents(1))
	assert.Equal(t, "0.00", record.FormatCents(0))
	assert.Equal(t, "-42.50", record.FormatCents(-4250))
}

func TestRecordHelpers(t *testing.T) {
	r := record.Record{Source: record.SourceBank, AmountCents: -2500}
	assert.Equal(t, int64(2500), r.AbsAmountCents())
	assert.False(t, r.HasDate())
}
