package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuarter(t *testing.T) {
	tests := []struct {
		label string
		want  Quarter
	}{
		{"3Q22", Quarter{2022, 3}},
		{"1Q2019", Quarter{2019, 1}},
		{"Q4 2021", Quarter{2021, 4}},
		{"q2-23", Quarter{2023, 2}},
		{"2020Q1", Quarter{2020, 1}},
		{"2020-Q2", Quarter{2020, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseQuarter(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "5Q22", "FY2022", "2022"} {
		_, err := ParseQuarter(bad)
		assert.True(t, errors.Is(err, ErrParse), "label %q", bad)
	}
}

func TestQuarterSequenceRollsYears(t *testing.T) {
	seq := QuarterSequence(Quarter{2022, 4}, 40)
	require.Len(t, seq, 40)
	assert.Equal(t, "4Q22", seq[0].String())
	assert.Equal(t, "1Q23", seq[1].String())
	assert.Equal(t, "3Q32", seq[39].String())

	assert.Nil(t, QuarterSequence(Quarter{2022, 1}, 0))
}

func TestLatestQuarter(t *testing.T) {
	q, err := LatestQuarter([]string{"1Q21", "3Q22", "2Q22", "4Q21"})
	require.NoError(t, err)
	assert.Equal(t, Quarter{2022, 3}, q)
	assert.Equal(t, Quarter{2022, 4}, q.Next())

	_, err = LatestQuarter([]string{"2021", "2022"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestYearOfUsesTwoDigitRule(t *testing.T) {
	y, err := YearOf("3Q22")
	require.NoError(t, err)
	assert.Equal(t, 2022, y)

	y, err = YearOf("1Q99")
	require.NoError(t, err)
	assert.Equal(t, 2099, y)

	for _, bad := range []string{"3Q2022", "Q3 22", "2022Q3"} {
		_, err := YearOf(bad)
		assert.ErrorIs(t, err, ErrParse, bad)
	}
}

func TestSortQuartersDesc(t *testing.T) {
	qs := []Quarter{{2021, 1}, {2022, 2}, {2021, 4}}
	SortQuartersDesc(qs)
	assert.Equal(t, []Quarter{{2022, 2}, {2021, 4}, {2021, 1}}, qs)
}
