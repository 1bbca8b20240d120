package frame

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prostateCSV = `ID,AGE,RACE,CAPSULE
1,65,B,0
2,72,A,1
3,NA,B,1
4,58,A,0
`

func TestParseCSV(t *testing.T) {
	fr, err := ParseCSV(strings.NewReader(prostateCSV), "prostate.hex",
		map[string]ColumnType{"RACE": Categorical, "CAPSULE": Categorical})
	require.NoError(t, err)

	assert.Equal(t, Key("prostate.hex"), fr.Key())
	assert.Equal(t, 4, fr.NumRows())
	assert.Equal(t, []string{"ID", "AGE", "RACE", "CAPSULE"}, fr.Names())

	age, ok := fr.Column("AGE")
	require.True(t, ok)
	assert.False(t, age.IsCategorical())
	assert.True(t, math.IsNaN(age.Num[2]))

	race, ok := fr.Column("RACE")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, race.Domain)
	assert.Equal(t, []int{1, 0, 1, 0}, race.Codes)
	assert.Equal(t, "B", race.Label(0))

	capsule, _ := fr.Column("CAPSULE")
	assert.Equal(t, []string{"0", "1"}, capsule.Domain)
}

func TestParseCSV_InfersUndeclaredTypes(t *testing.T) {
	fr, err := ParseCSV(strings.NewReader("x,label\n1.5,a\n,b\n"), "k", nil)
	require.NoError(t, err)

	x, _ := fr.Column("x")
	label, _ := fr.Column("label")
	assert.Equal(t, Numeric, x.Type)
	assert.Equal(t, Categorical, label.Type)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""), "k", nil)
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader("x\nabc\n"), "k", map[string]ColumnType{"x": Numeric})
	assert.ErrorContains(t, err, `"abc" is not numeric`)
}

func TestNew_RejectsRaggedColumns(t *testing.T) {
	_, err := New("k", NewNumericColumn("a", []float64{1, 2}), NewNumericColumn("b", []float64{1}))
	assert.Error(t, err)

	_, err = New("k", NewNumericColumn("a", []float64{1}), NewNumericColumn("a", []float64{1}))
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	s := NewStore()
	a, _ := New("b_frame", NewNumericColumn("x", []float64{1}))
	b, _ := New("a_frame", NewNumericColumn("x", []float64{2}))

	s.Put(a)
	s.Put(b)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Key{"a_frame", "b_frame"}, s.Keys())

	got, ok := s.Get("b_frame")
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, s.Remove("a_frame"))
	assert.False(t, s.Remove("a_frame"))
	assert.Equal(t, 1, s.Len())
}

func TestNewKey_IsUnique(t *testing.T) {
	a, b := NewKey("bounds"), NewKey("bounds")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), "bounds_"))
}

func TestNewDesign(t *testing.T) {
	fr, err := ParseCSV(strings.NewReader(prostateCSV), "prostate.hex",
		map[string]ColumnType{"RACE": Categorical, "CAPSULE": Categorical})
	require.NoError(t, err)

	d, err := NewDesign(fr, "CAPSULE")
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"ID", "AGE", "RACE.A", "RACE.B"}, d.Encoder.Names()); diff != "" {
		t.Errorf("feature names mismatch (-want +got):\n%s", diff)
	}

	r, c := d.X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)

	// 欠損値は学習データの平均で補完される
	assert.InDelta(t, (65.0+72+58)/3, d.X.At(2, 1), 1e-12)
	assert.Equal(t, 0.0, d.X.At(0, 2))
	assert.Equal(t, 1.0, d.X.At(0, 3))

	assert.True(t, d.Response.Categorical)
	assert.Equal(t, []int{0, 1, 1, 0}, d.Response.Classes())
	assert.Equal(t, 2, d.Response.NumLevels())
}

func TestEncoder_TransformUnseenLevel(t *testing.T) {
	train, _ := New("train",
		NewCategoricalColumn("c", []string{"x", "y"}),
		NewNumericColumn("y", []float64{1, 2}))
	enc, err := NewEncoder(train, "y")
	require.NoError(t, err)

	test, _ := New("test",
		NewCategoricalColumn("c", []string{"z"}),
		NewNumericColumn("y", []float64{3}))
	X, err := enc.Transform(test)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, X.RawRowView(0))

	missing, _ := New("m", NewNumericColumn("y", []float64{3}))
	_, err = enc.Transform(missing)
	assert.Error(t, err)
}

func TestResponseOf_Missing(t *testing.T) {
	fr, _ := New("k", NewNumericColumn("y", []float64{1, math.NaN()}))
	_, err := ResponseOf(fr, "y")
	assert.Error(t, err)

	_, err = ResponseOf(fr, "nope")
	assert.Error(t, err)
}

func TestNewEncoder_NoPredictors(t *testing.T) {
	fr, _ := New("k", NewNumericColumn("y", []float64{1}))
	_, err := NewEncoder(fr, "y")
	assert.Error(t, err)
}
