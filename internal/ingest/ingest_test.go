package ingest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/event-service/internal/domain"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Event Name", "event_name"},
		{"  Precio  (USD) ", "precio_usd"},
		{"2024 Budget", "col_2024_budget"},
		{"%%%", unnamedColumn},
		{"", unnamedColumn},
		{"Ubicación", "ubicacin"},
		{"already_fine", "already_fine"},
		{strings.Repeat("a", 80), strings.Repeat("a", MaxIdentifierLen)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeIdentifier(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeIdentifier(got), "normalization must be idempotent")
			assert.True(t, ValidIdentifier(got))
		})
	}
}

func TestNormalizeHeaders(t *testing.T) {
	names, err := NormalizeHeaders([]string{"Name", "", "Start Date"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "column_2", "start_date"}, names)

	_, err = NormalizeHeaders([]string{"Full Name", "full  name", "City"})
	require.ErrorIs(t, err, ErrDuplicateColumns)
	assert.Contains(t, err.Error(), "full_name")
}

func TestTableName(t *testing.T) {
	name, err := TableName("Sales Q1")
	require.NoError(t, err)
	assert.Equal(t, "sales_q1", name)

	_, err = TableName("   ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, KindNull, NormalizeValue("   ").Kind)

	v := NormalizeValue(" 42 ")
	assert.Equal(t, KindInteger, v.Kind)
	assert.Equal(t, int64(42), v.Int)
	assert.Equal(t, "42", v.Raw)

	v = NormalizeValue("3.0")
	assert.Equal(t, KindInteger, v.Kind)
	assert.Equal(t, int64(3), v.Int)

	v = NormalizeValue("19.99")
	assert.Equal(t, KindDecimal, v.Kind)
	assert.InDelta(t, 19.99, v.Float, 1e-9)

	v = NormalizeValue("2030-05-01")
	assert.Equal(t, KindTimestamp, v.Kind)
	assert.True(t, time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC).Equal(v.Time))

	v = NormalizeValue("Main Hall")
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, "Main Hall", v.Raw)
}

func TestInferColumnType(t *testing.T) {
	values := func(raw ...string) []Value {
		out := make([]Value, len(raw))
		for i, r := range raw {
			out[i] = NormalizeValue(r)
		}
		return out
	}
	tests := []struct {
		name string
		in   []Value
		want domain.ColumnType
	}{
		{"integers", values("1", "", "30"), domain.ColumnInteger},
		{"decimals", values("1", "2.5", ""), domain.ColumnDecimal},
		{"dates", values("2030-01-01", "", "2031-12-24"), domain.ColumnTimestamp},
		{"mixed", values("1", "alpha"), domain.ColumnVarchar},
		{"long text", values(strings.Repeat("x", domain.VarcharMaxLen+1)), domain.ColumnText},
		{"all null", values("", " "), domain.ColumnText},
		{"no rows", nil, domain.ColumnText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferColumnType(tt.in))
			assert.Equal(t, tt.want, InferColumnType(tt.in), "inference must be deterministic")
		})
	}
}

func TestPrepare(t *testing.T) {
	ds, err := Prepare(Sheet{
		Headers: []string{"Product Name", "Qty", "Unit Price", "Shipped On"},
		Rows: [][]string{
			{"Widget", "3", "9.50", "2030-02-01"},
			{"Gadget", "", "12", ""},
		},
	})
	require.NoError(t, err)
	require.Len(t, ds.Columns, 4)

	assert.Equal(t, "product_name", ds.Columns[0].Name)
	assert.Equal(t, "Product Name", ds.Columns[0].Source)
	assert.Equal(t, domain.ColumnVarchar, ds.Columns[0].Type)
	assert.Equal(t, domain.ColumnInteger, ds.Columns[1].Type)
	assert.Equal(t, domain.ColumnDecimal, ds.Columns[2].Type)
	assert.Equal(t, domain.ColumnTimestamp, ds.Columns[3].Type)

	records := ds.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Widget", records[0][0])
	assert.Equal(t, int64(3), records[0][1])
	assert.Equal(t, 9.5, records[0][2])
	assert.Nil(t, records[1][1])
	assert.Equal(t, float64(12), records[1][2])
	assert.Nil(t, records[1][3])

	_, err = Prepare(Sheet{Headers: []string{"A", "a"}})
	assert.ErrorIs(t, err, ErrDuplicateColumns)

	_, err = Prepare(Sheet{})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestMapEventsSkipsPastRows(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sheet := Sheet{Headers: []string{"Nombre", "Fecha", "Capacidad", "Precio", "Lugar"}}
	for i := 0; i < 10; i++ {
		date := "2027-03-15"
		if i%4 == 0 {
			date = "2025-06-01"
		}
		sheet.Rows = append(sheet.Rows, []string{
			fmt.Sprintf("Concert %d", i), date, "50", "10.5", "Teatro",
		})
	}

	ds, err := Prepare(sheet)
	require.NoError(t, err)

	drafts, skips := MapEvents(ds, now)
	assert.Len(t, drafts, 7)
	require.Len(t, skips, 3)
	for _, skip := range skips {
		assert.Equal(t, "date is not in the future", skip.Reason)
	}
	assert.Equal(t, []int{1, 5, 9}, []int{skips[0].Row, skips[1].Row, skips[2].Row})

	first := drafts[0]
	assert.Equal(t, "Concert 1", first.Name)
	assert.Equal(t, 50, first.Capacity)
	assert.Equal(t, 10.5, first.Price)
	require.NotNil(t, first.Location)
	assert.Equal(t, "Teatro", *first.Location)

	event := first.Event("admin-1")
	assert.Equal(t, 50, event.AvailableSlots)
	assert.Equal(t, domain.EventStatusActive, event.Status)
	assert.Equal(t, "admin-1", event.CreatedBy)
}

func TestMapEventsValidation(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ds, err := Prepare(Sheet{
		Headers: []string{"Title", "When", "Cupos", "Cost"},
		Rows: [][]string{
			{"Ok event", "2027-01-01", "10", ""},
			{"", "2027-01-01", "10", ""},
			{"No", "2027-01-01", "10", ""},
			{"Bad date", "someday", "10", ""},
			{"No capacity", "2027-01-01", "", ""},
			{"Huge", "2027-01-01", "20000", ""},
			{"Fractional", "2027-01-01", "2.5", ""},
			{"Negative", "2027-01-01", "5", "-1"},
			{"Free text price", "2027-01-01", "5", "free"},
		},
	})
	require.NoError(t, err)

	drafts, skips := MapEvents(ds, now)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Ok event", drafts[0].Name)
	assert.Zero(t, drafts[0].Price)
	assert.Len(t, skips, 8)

	reasons := make(map[int]string, len(skips))
	for _, skip := range skips {
		reasons[skip.Row] = skip.Reason
	}
	assert.Equal(t, "missing name", reasons[2])
	assert.Contains(t, reasons[3], "name must be")
	assert.Contains(t, reasons[4], "unparseable date")
	assert.Equal(t, "missing capacity", reasons[5])
	assert.Contains(t, reasons[6], "capacity must be")
	assert.Contains(t, reasons[7], "invalid capacity")
	assert.Equal(t, "price must not be negative", reasons[8])
	assert.Contains(t, reasons[9], "invalid price")
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffName,Date,Capacity\nTalk,2030-01-01,20\n,,\nWorkshop,2030-02-01,15,extra\n"
	sheet, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Date", "Capacity", ""}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"Talk", "2030-01-01", "20", ""}, sheet.Rows[0])
	assert.Equal(t, "extra", sheet.Rows[1][3])

	ds, err := Prepare(sheet)
	require.NoError(t, err)
	assert.Equal(t, "column_4", ds.Columns[3].Name)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Name", "Capacity"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Meetup", 40}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"Hackathon", 100}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	parsed, err := Parse("events.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Capacity"}, parsed.Headers)
	assert.Equal(t, [][]string{{"Meetup", "40"}, {"Hackathon", "100"}}, parsed.Rows)
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse("legacy.xls", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}
