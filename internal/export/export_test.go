package export_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"taskhub/internal/apperrors"
	"taskhub/internal/export"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []export.Record {
	return []export.Record{
		{Keys: []string{"task_id", "title", "status"}, Values: []interface{}{1, "First task", "completed"}},
		{Keys: []string{"task_id", "title", "status"}, Values: []interface{}{2, "Second task", "in_progress"}},
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()

	filename, err := export.Write(dir, "tasks", "csv", sampleRows())
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filename))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	// заголовки — это ключи первой записи
	require.Equal(t, []string{"task_id", "title", "status"}, records[0])
	require.Equal(t, []string{"1", "First task", "completed"}, records[1])
	require.Equal(t, []string{"2", "Second task", "in_progress"}, records[2])
}

func TestWriteFilename(t *testing.T) {
	dir := t.TempDir()

	filename, err := export.Write(dir, "user-performance", "csv", nil)
	require.NoError(t, err)

	// метка времени без двоеточий и точек
	require.Regexp(t, regexp.MustCompile(`^user-performance_report_[0-9TZ-]+\.csv$`), filename)
}

// Пустой набор — файл существует, но без заголовка и строк
func TestWriteEmptyCSV(t *testing.T) {
	dir := t.TempDir()

	filename, err := export.Write(dir, "tasks", "csv", []export.Record{})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestWriteEmptyXLSX(t *testing.T) {
	dir := t.TempDir()

	filename, err := export.Write(dir, "vendor-performance", "xlsx", nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()

	filename, err := export.Write(dir, "tasks", "xlsx", sampleRows())
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// заголовки в xlsx приводятся к виду "Task Id"
	require.Equal(t, []string{"Task Id", "Title", "Status"}, rows[0])
	require.Equal(t, []string{"1", "First task", "completed"}, rows[1])
}

func TestWriteUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()

	_, err := export.Write(dir, "tasks", "pdf", sampleRows())
	require.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)

	// до файловой системы дело не дошло
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCSVNilPointerCells(t *testing.T) {
	dir := t.TempDir()

	rows := []export.Record{
		{Keys: []string{"name", "avg_days"}, Values: []interface{}{"Ivan", (*float64)(nil)}},
	}
	filename, err := export.Write(dir, "user-performance", "csv", rows)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filename))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"Ivan", ""}, records[1])
}
