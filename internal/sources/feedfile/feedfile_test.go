package feedfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tradeindex/internal/model"
)

const instituteCSV = `Year,Month,Country,Trade,Commodity_Code,NAICS,HTS_Desc,Data,Qty_1,Unit_1,Qty_2,Unit_2
2021,7,Spain,i,'0101210010,1121,Horses,"1,200",10,KG,,
2021,7,Japan,e,101290000,1121,Horses,300,2,T,1,Doz
2021,8,Chile,i,0202300000,RETURN,Returned goods,50,1,kg,,
`

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"'0101210010", "0101210010"},
		{"101290000", "0101290000"},
		{"  8703 ", "0000008703"},
		{"", ""},
		{"01012100105", "01012100105"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCode(tt.in), tt.in)
	}
}

func TestReaderCSVInstituteFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jp_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(instituteCSV), 0o644))

	reader := New(path, model.FeedInstitute)
	assert.Equal(t, "feedfile:jp", reader.Name())

	records, err := reader.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, model.FlowImport, first.Flow)
	assert.Equal(t, "0101210010", first.CommodityCode)
	assert.Equal(t, "1121", first.IndustryCode)
	assert.Equal(t, "Spain", first.Country)
	assert.Equal(t, "Horses", first.Description)
	assert.Equal(t, 1200.0, first.Value)
	assert.Equal(t, 10.0, first.Qty1)
	assert.Equal(t, "kg", first.Unit1)
	assert.Equal(t, 0.0, first.Qty2)

	second := records[1]
	assert.Equal(t, model.FlowExport, second.Flow)
	assert.Equal(t, "0101290000", second.CommodityCode)
	assert.Equal(t, "t", second.Unit1)
	assert.Equal(t, "doz", second.Unit2)
}

func TestReaderXLSXCuratedFeed(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"YEAR", "MONTH", "COUNTRY", "IMPORT_EXPORT", "HTS", "VALUE", "QTY_1", "UNIT_1"},
		{2020, 1, "Mexico", "i", "0101210010", 500, 5, "KG"},
		{2020, 2, "Canada", "e", "8703", 250, 1, "m3"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "org_data.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	records, err := New(path, model.FeedCurated).Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, model.FlowImport, records[0].Flow)
	assert.Equal(t, 500.0, records[0].Value)
	assert.Equal(t, "kg", records[0].Unit1)
	assert.Equal(t, model.FlowExport, records[1].Flow)
	assert.Equal(t, "0000008703", records[1].CommodityCode)
	assert.Equal(t, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), records[1].Date)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([][]string{{"year", "month", "country", "hts", "value"}}, model.FeedCurated)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Parse([][]string{
		{"year", "month", "country", "hts", "import_export", "value"},
		{"2020", "13", "Spain", "0101", "i", "1"},
	}, model.FeedCurated)
	assert.ErrorIs(t, err, ErrMalformedRow)

	_, err = Parse([][]string{
		{"year", "month", "country", "hts", "import_export", "value"},
		{"2020", "1", "Spain", "0101", "i", "n/a"},
	}, model.FeedCurated)
	assert.ErrorIs(t, err, ErrMalformedRow)
}

func TestParseSkipsBlankRows(t *testing.T) {
	records, err := Parse([][]string{
		{"year", "month", "country", "hts", "import_export", "value"},
		{"", "", "", "", "", ""},
		{"2020", "1", "Spain", "", "i", "1"},
	}, model.FeedCurated)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].CommodityCode)
}

func TestReaderUnsupportedFormat(t *testing.T) {
	_, err := New("trade.parquet", model.FeedCurated).Records(context.Background())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
