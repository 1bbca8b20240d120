package testng

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/tools/txtar"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

func TestSplitRow(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"a,b,,", []string{"a", "b", "", ""}},
		{",a", []string{"", "a"}},
		{"  a,b  ", []string{"a", "b"}},
		{"", []string{""}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitRow(tt.line), "%q", tt.line)
	}
}

// TestReadTestcaseFile_Fixtures runs the txtar fixtures under testdata/loader.
// Each archive holds table.csv and a want file listing either
// "error: <missing column>" or one line per expected row:
// "<testcase_id> column=value ...".
func TestReadTestcaseFile_Fixtures(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "loader", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	reg := testRegistry(t)
	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			archive, err := txtar.ParseFile(file)
			require.NoError(t, err)

			headerRow := 2
			for _, line := range strings.Split(string(archive.Comment), "\n") {
				if v, ok := strings.CutPrefix(line, "header_row: "); ok {
					headerRow, err = strconv.Atoi(v)
					require.NoError(t, err)
				}
			}

			dir := t.TempDir()
			var want string
			for _, f := range archive.Files {
				if f.Name == "want" {
					want = strings.TrimSpace(string(f.Data))
					continue
				}
				require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o644))
			}

			spec := AlgorithmSpec{Algorithm: DRF, HeaderRow: headerRow}
			cases, err := ReadTestcaseFile(reg, spec, filepath.Join(dir, "table.csv"), false)

			if missing, ok := strings.CutPrefix(want, "error: "); ok {
				var herr *errors.HeaderError
				require.True(t, errors.As(err, &herr), "got %v", err)
				assert.Equal(t, missing, herr.Missing)
				assert.Nil(t, cases)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cases)

			var lines []string
			if want != "" {
				lines = strings.Split(want, "\n")
			}
			require.Len(t, cases, len(lines))
			for i, line := range lines {
				fields := strings.Fields(line)
				assert.Equal(t, fields[0], cases[i].ID)
				for _, kv := range fields[1:] {
					k, v, _ := strings.Cut(kv, "=")
					assert.Equal(t, v, cases[i].Raw.Get(k), "%s %s", cases[i].ID, k)
				}
				schema, _ := SchemaFor(DRF)
				assert.Len(t, cases[i].Raw, len(schema.Headers()))
			}
		})
	}
}

func TestReadTestcaseFile_ResolvesDatasets(t *testing.T) {
	reg := testRegistry(t)
	cases, err := ReadTestcaseFile(reg, tableSpec(DRF), tableSpec(DRF).Positive, false)
	require.NoError(t, err)
	require.Len(t, cases, 7)

	drf2 := findCase(t, cases, "drf_2")
	require.NotNil(t, drf2.Train)
	require.NotNil(t, drf2.Validate)
	assert.Equal(t, "2", drf2.Train.ID)
	assert.Equal(t, DRF, drf2.Algorithm)
	assert.False(t, drf2.Negative)
	assert.Equal(t, "cars tuned with validation", drf2.Description)

	assert.Nil(t, findCase(t, cases, "drf_4").Train)
	assert.Nil(t, findCase(t, cases, "drf_5").Train)
	assert.NotNil(t, findCase(t, cases, "drf_6").Train)
}

func TestReadTestcaseFile_NotFound(t *testing.T) {
	reg := testRegistry(t)
	_, err := ReadTestcaseFile(reg, tableSpec(DRF), filepath.Join(t.TempDir(), "none.csv"), false)
	assert.True(t, errors.Is(err, errors.ErrTableNotFound))

	_, err = ReadTestcaseFile(reg, tableSpec(DRF), "", false)
	assert.True(t, errors.Is(err, errors.ErrTableNotFound))
}

func TestReadTestcaseFile_ShortRowWarns(t *testing.T) {
	logs := captureLogs(t)
	path := filepath.Join(t.TempDir(), "short.csv")
	schema, _ := SchemaFor(DRF)
	content := "title\n" + strings.Join(schema.Headers(), ",") + "\ndrf_1,short,1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cases, err := ReadTestcaseFile(nil, tableSpec(DRF), path, true)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.True(t, cases[0].Negative)
	assert.Equal(t, "", cases[0].Raw.Get("seed"))
	assert.True(t, logs.ContainsMessage("row has fewer cells than the header"))
}

func TestReadTestcaseFile_XLSX(t *testing.T) {
	schema, _ := SchemaFor(GLM)
	path := filepath.Join(t.TempDir(), "glm_positive.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"GLM positive testcases"}))
	header := make([]interface{}, len(schema.Headers()))
	for i, h := range schema.Headers() {
		header[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &header))
	// 末尾の空セルは excelize が落とす
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"glm_x", "from excel", "2"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	reg := testRegistry(t)
	cases, err := ReadTestcaseFile(reg, AlgorithmSpec{Algorithm: GLM, HeaderRow: 2}, path, false)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "glm_x", cases[0].ID)
	assert.Equal(t, "from excel", cases[0].Description)
	require.NotNil(t, cases[0].Train)
	assert.Equal(t, "", cases[0].Raw.Get(ColUpperBound))
}

func TestDataProvider(t *testing.T) {
	reg := testRegistry(t)

	t.Run("positives first", func(t *testing.T) {
		cases := DataProvider(reg, tableSpec(GLM))
		ids := make([]string, len(cases))
		for i, tc := range cases {
			ids[i] = tc.ID
		}
		assert.Equal(t, []string{"glm_1", "glm_2", "glm_3", "glm_n1", "glm_n2"}, ids)
		assert.False(t, cases[0].Negative)
		assert.True(t, cases[4].Negative)
	})

	t.Run("both missing", func(t *testing.T) {
		dir := t.TempDir()
		spec := AlgorithmSpec{Algorithm: GBM, HeaderRow: 2,
			Positive: filepath.Join(dir, "a.csv"), Negative: filepath.Join(dir, "b.csv")}
		assert.Nil(t, DataProvider(reg, spec))
	})

	t.Run("present but empty", func(t *testing.T) {
		dir := t.TempDir()
		schema, _ := SchemaFor(GBM)
		path := filepath.Join(dir, "a.csv")
		require.NoError(t, os.WriteFile(path, []byte("title\n"+strings.Join(schema.Headers(), ",")+"\n"), 0o644))
		spec := AlgorithmSpec{Algorithm: GBM, HeaderRow: 2, Positive: path, Negative: filepath.Join(dir, "b.csv")}
		cases := DataProvider(reg, spec)
		assert.NotNil(t, cases)
		assert.Empty(t, cases)
	})

	t.Run("missing header column is logged", func(t *testing.T) {
		logs := captureLogs(t)
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("title\ntestcase_id,test_description\nx,y\n"), 0o644))
		spec := AlgorithmSpec{Algorithm: DRF, HeaderRow: 2, Positive: path}
		assert.Nil(t, DataProvider(reg, spec))
		assert.True(t, logs.ContainsField("missing_column", "train_dataset_id"))
	})
}
