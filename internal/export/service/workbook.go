package service

import (
	"errors"
	"fmt"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// workbook wraps an excelize file and writes rows sheet by sheet.
type workbook struct {
	file    *excelize.File
	created bool
	closed  bool
}

func newWorkbook() *workbook {
	return &workbook{file: excelize.NewFile()}
}

// writeWorkbook builds a fresh workbook and saves it to path. The workbook is closed on
// every path, including a failed build.
func writeWorkbook(path string, build func(wb *workbook) error) (err error) {
	wb := newWorkbook()
	defer func() {
		err = errors.Join(err, wb.close())
	}()
	if err := build(wb); err != nil {
		return err
	}
	return wb.saveAs(path)
}

// addSheet creates a sheet; the first one renames the default sheet.
func (wb *workbook) addSheet(name string) error {
	if !wb.created {
		wb.created = true
		if err := wb.file.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("failed to rename default sheet to %s: %w", name, err)
		}
		return nil
	}
	if _, err := wb.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	return nil
}

// writeRows writes rows starting at row 1. A nil row leaves that row empty.
func (wb *workbook) writeRows(sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to compute cell name for row %d: %w", i+1, err)
		}
		if err := wb.file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func (wb *workbook) saveAs(path string) error {
	if err := wb.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func (wb *workbook) close() error {
	if wb.closed {
		return nil
	}
	wb.closed = true
	if err := wb.file.Close(); err != nil {
		return fmt.Errorf("failed to close workbook: %w", err)
	}
	return nil
}
