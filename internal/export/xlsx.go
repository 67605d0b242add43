package export

import (
	"fmt"
	"io"

	"github.com/hyperjump/kplus/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	articlesSheet = "Статьи"
	metadataSheet = "Реквизиты"
)

var articleHeader = []any{"Глава", "Название главы", "Статья", "Заголовок", "Частей", "Токенов", "Слов"}

// WriteXLSX writes an article register workbook: one row per article on the
// first sheet and the act's requisites on the second.
func WriteXLSX(w io.Writer, doc *models.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", articlesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetRow(articlesSheet, "A1", &articleHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(articlesSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	stats := doc.Statistics()
	for i, a := range doc.AllArticles() {
		var chNumber any
		chTitle := ""
		if a.Chapter != nil {
			chNumber, chTitle = a.Chapter.Number, a.Chapter.Title
		}
		row := []any{chNumber, chTitle, a.Number, a.Title, len(a.Parts), stats.PerArticle[i].Tokens, stats.PerArticle[i].Words}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(articlesSheet, cell, &row); err != nil {
			return fmt.Errorf("write article %s: %w", a.Number, err)
		}
	}
	if err := f.SetColWidth(articlesSheet, "D", "D", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.NewSheet(metadataSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	v := NewMetadataView(doc.Metadata)
	rows := [][]any{
		{"Вид документа", v.DocType},
		{"Номер", v.Number},
		{"Дата", v.Date},
		{"Название", v.Title},
		{"Орган", v.Authority},
		{"Статус", v.Status},
		{"Редакция", v.VersionDate},
		{"Источник", v.Source},
		{"Глав", stats.Chapters},
		{"Статей", stats.Articles},
		{"Токенов", stats.EstimatedTokens},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(metadataSheet, cell, &row); err != nil {
			return fmt.Errorf("write requisites: %w", err)
		}
	}
	if err := f.SetColStyle(metadataSheet, "A", bold); err != nil {
		return fmt.Errorf("style requisites: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
