package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskhub/internal/apperrors"

	"github.com/xuri/excelize/v2"
)

// Record — одна строка экспорта с фиксированным порядком колонок.
// Заголовки файла выводятся из ключей первой записи.
type Record struct {
	Keys   []string
	Values []interface{}
}

// Write сериализует строки отчёта в CSV или XLSX и кладёт файл в dir,
// создавая каталог при необходимости. Возвращает имя файла.
// Пустой набор записей даёт файл без строк и без заголовка:
// ключи нулевой записи не определены.
func Write(dir, reportType, format string, rows []Record) (string, error) {
	var ext string
	switch format {
	case "csv":
		ext = "csv"
	case "xlsx":
		ext = "xlsx"
	default:
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	ts := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339))
	filename := fmt.Sprintf("%s_report_%s.%s", reportType, ts, ext)
	path := filepath.Join(dir, filename)

	var err error
	if ext == "csv" {
		err = writeCSV(path, rows)
	} else {
		err = writeXLSX(path, rows)
	}
	if err != nil {
		return "", err
	}
	return filename, nil
}

func writeCSV(path string, rows []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(rows) > 0 {
		if err := w.Write(rows[0].Keys); err != nil {
			return err
		}
	}
	for _, r := range rows {
		line := make([]string, len(r.Values))
		for i, v := range r.Values {
			line[i] = cellString(v)
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path string, rows []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	if len(rows) > 0 {
		boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		for i, key := range rows[0].Keys {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, headerTitle(key)); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, boldStyle); err != nil {
				return err
			}
		}
	}
	for rowIdx, r := range rows {
		for colIdx, v := range r.Values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// headerTitle превращает snake_case ключ в заголовок: "user_id" -> "User Id"
func headerTitle(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(time.RFC3339)
	case time.Time:
		return x.Format(time.RFC3339)
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case *float64:
		if x == nil {
			return ""
		}
		return fmt.Sprintf("%v", *x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// cellValue разворачивает указатели, оставляя остальное excelize
func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return ""
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(time.RFC3339)
	case time.Time:
		return x.Format(time.RFC3339)
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case *float64:
		if x == nil {
			return ""
		}
		return *x
	default:
		return x
	}
}
