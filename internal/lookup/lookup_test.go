package lookup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tradeindex/internal/model"
)

func TestParseAgricultureArray(t *testing.T) {
	agri, err := ParseAgriculture([]byte(`[101, "0202", 8]`))
	require.NoError(t, err)
	assert.Equal(t, 3, agri.Len())

	assert.True(t, agri.IsAgricultural("0101210010"))
	assert.True(t, agri.IsAgricultural("0202300000"))
	assert.True(t, agri.IsAgricultural("0008000000"))
	assert.False(t, agri.IsAgricultural("8703230000"))
	assert.False(t, agri.IsAgricultural(""))
}

func TestParseAgricultureObject(t *testing.T) {
	agri, err := ParseAgriculture([]byte(`{"0": 101, "1": 201}`))
	require.NoError(t, err)
	assert.True(t, agri.IsAgricultural("0201100000"))
}

func TestParseAgricultureMalformed(t *testing.T) {
	for _, data := range []string{`"0101"`, `[true]`, `{`} {
		_, err := ParseAgriculture([]byte(data))
		assert.ErrorIs(t, err, ErrMalformedLookup, data)
	}
}

func TestLoadAgriculture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code_agr.json")
	require.NoError(t, os.WriteFile(path, []byte(`[401]`), 0o644))

	agri, err := LoadAgriculture(path)
	require.NoError(t, err)
	assert.True(t, agri.IsAgricultural("0401100000"))

	_, err = LoadAgriculture(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNilAgriculture(t *testing.T) {
	var agri *Agriculture
	assert.False(t, agri.IsAgricultural("0101"))
	assert.Equal(t, 0, agri.Len())
}

func TestDescriptionWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"HTS_4", "HTS_desc"},
		{101, "Live horses"},
		{"0101", "Live horses"},
		{"0101", "Asses"},
		{"", "blank"},
		{8703, "Motor cars"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "hts_4_cats.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := NewDescriptionWorkbook(path).Descriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.CommodityDescription{
		{HS4: "0101", Description: "Live horses"},
		{HS4: "0101", Description: "Asses"},
		{HS4: "8703", Description: "Motor cars"},
	}, got)
}

func TestDescriptionWorkbookMissingColumns(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue(f.GetSheetName(0), "A1", "code"))
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := NewDescriptionWorkbook(path).Descriptions(context.Background())
	assert.ErrorIs(t, err, ErrMalformedLookup)
}
