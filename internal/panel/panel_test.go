package panel

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(core.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPricesToReturns(t *testing.T) {
	prices := [][]float64{
		{100, 50},
		{110, 50},
		{121, 25},
	}

	got := PricesToReturns(prices)

	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0][0], 1e-12)
	assert.InDelta(t, 0.0, got[0][1], 1e-12)
	assert.InDelta(t, 0.10, got[1][0], 1e-12)
	assert.InDelta(t, -0.5, got[1][1], 1e-12)
}

func TestPricesToReturns_TooShort(t *testing.T) {
	assert.Empty(t, PricesToReturns(nil))
	assert.Empty(t, PricesToReturns([][]float64{{100, 100}}))
}

func TestPricesToReturns_ZeroPriceIsNonFinite(t *testing.T) {
	got := PricesToReturns([][]float64{{0}, {1}})
	assert.True(t, math.IsInf(got[0][0], 1))
}

func TestPanel_Returns(t *testing.T) {
	p, err := New(
		[]time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04")},
		[]string{"A", "B"},
		[][]float64{{100, 10}, {101, 11}, {102.01, 12.1}},
	)
	require.NoError(t, err)

	r := p.Returns()

	assert.Equal(t, 2, r.Rows())
	assert.Equal(t, 2, r.Cols())
	assert.Equal(t, []time.Time{day("2024-01-03"), day("2024-01-04")}, r.Dates)
	assert.InDelta(t, 0.01, r.Values[1][0], 1e-12)
	assert.InDelta(t, 0.10, r.Values[1][1], 1e-12)
}

func TestNew_RaggedRows(t *testing.T) {
	_, err := New(nil, []string{"A", "B"}, [][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, core.ErrPrecondition)
}

func TestNew_DateMismatch(t *testing.T) {
	_, err := New([]time.Time{day("2024-01-02")}, []string{"A"}, [][]float64{{1}, {2}})
	assert.ErrorIs(t, err, core.ErrPrecondition)
}

func TestFromBars_AlignsOnUnionOfDates(t *testing.T) {
	bars := map[string][]core.Bar{
		"A": {
			{Symbol: "A", Time: day("2024-01-03"), Close: 11},
			{Symbol: "A", Time: day("2024-01-02"), Close: 10},
		},
		"B": {
			{Symbol: "B", Time: day("2024-01-03"), Close: 21},
			{Symbol: "B", Time: day("2024-01-04"), Close: 22},
		},
	}

	p := FromBars([]string{"B", "A"}, bars)

	assert.Equal(t, []string{"B", "A"}, p.Columns)
	require.Equal(t, 3, p.Rows())
	assert.Equal(t, day("2024-01-02"), p.Dates[0])
	assert.True(t, math.IsNaN(p.Values[0][0]))
	assert.Equal(t, 10.0, p.Values[0][1])
	assert.Equal(t, []float64{21, 11}, p.Values[1])
	assert.True(t, math.IsNaN(p.Values[2][1]))
}

func TestPanel_Clean(t *testing.T) {
	nan := math.NaN()
	p := &Panel{
		Dates: []time.Time{
			day("2024-01-01"), day("2024-01-02"), day("2024-01-03"),
			day("2024-01-04"), day("2024-01-05"), day("2024-01-08"),
		},
		Columns: []string{"A", "B"},
		Values: [][]float64{
			{nan, 5},   // leading gap in A, dropped after fill
			{nan, nan}, // holiday, dropped
			{10, 6},
			{nan, 7},
			{nan, 8},
			{13, nan},
		},
	}

	dropped := p.Clean(1)

	// A at 01-05 is the second consecutive gap, beyond the fill limit.
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []time.Time{day("2024-01-03"), day("2024-01-04"), day("2024-01-08")}, p.Dates)
	assert.Equal(t, [][]float64{{10, 6}, {10, 7}, {13, 8}}, p.Values)
}

func TestPanel_CleanWithoutDates(t *testing.T) {
	p := &Panel{Columns: []string{"A", "B"}, Values: [][]float64{{1, 1}, {math.NaN(), 2}, {3, 3}}}
	dropped := p.Clean(5)

	assert.Zero(t, dropped)
	assert.Nil(t, p.Dates)
	assert.Equal(t, [][]float64{{1, 1}, {1, 2}, {3, 3}}, p.Values)
}

func TestCSV_RoundTripWithGaps(t *testing.T) {
	p := &Panel{
		Dates:   []time.Time{day("2024-01-02"), day("2024-01-03")},
		Columns: []string{"SPY", "QQQ"},
		Values:  [][]float64{{470.5, math.NaN()}, {472.25, 401.1}},
	}

	var buf bytes.Buffer
	require.NoError(t, p.WriteCSV(&buf))
	assert.Contains(t, buf.String(), "Date,SPY,QQQ\n2024-01-02,470.5,\n")

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, p.Columns, got.Columns)
	assert.Equal(t, p.Dates, got.Dates)
	assert.True(t, math.IsNaN(got.Values[0][1]))
	assert.Equal(t, 401.1, got.Values[1][1])
}

func TestCSV_PeriodIndex(t *testing.T) {
	p := &Panel{Columns: []string{"X"}, Values: [][]float64{{1.5}, {2}}}

	var buf bytes.Buffer
	require.NoError(t, p.WriteCSV(&buf))
	assert.Equal(t, "Period,X\n0,1.5\n1,2\n", buf.String())

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Nil(t, got.Dates)
	assert.Equal(t, [][]float64{{1.5}, {2}}, got.Values)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(bytes.NewBufferString(""))
	assert.ErrorIs(t, err, core.ErrNoData)

	_, err = ReadCSV(bytes.NewBufferString("Date\n2024-01-02\n"))
	assert.ErrorIs(t, err, core.ErrPrecondition)

	_, err = ReadCSV(bytes.NewBufferString("Date,A\nnot-a-date,1\n"))
	assert.Error(t, err)

	_, err = ReadCSV(bytes.NewBufferString("Date,A\n2024-01-02,abc\n"))
	assert.Error(t, err)
}
