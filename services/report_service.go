package services

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"backend_telearenda/database"
	"backend_telearenda/models"
)

// ReportService формирует выгрузки реестра привязок в Excel и PDF.
// Готовые выгрузки кэшируются и инвалидируются вместе со сгруппированным
// представлением
type ReportService struct {
	DB    *gorm.DB
	Store *AssociationStore
	Cache *CacheService
}

// NewReportService создает новый экземпляр ReportService
func NewReportService(db *gorm.DB, cache *CacheService) *ReportService {
	return &ReportService{
		DB:    db,
		Store: NewAssociationStore(db),
		Cache: cache,
	}
}

// associationReportHeaders колонки реестра привязок
var associationReportHeaders = []string{
	"ID", "Клиент", "Актив", "Тип актива", "Тип привязки",
	"Дата входа", "Дата выхода", "Цена в месяц", "Лимит трафика, ГБ",
}

// loadReportRows выбирает строки реестра для выгрузки
func (rs *ReportService) loadReportRows(filter AssociationFilter) ([]models.Association, error) {
	// Для отчета пагинация не применяется, берем крупную страницу
	filter.Page = 1
	if filter.PageSize < 1 {
		filter.PageSize = 10000
	}
	rows, _, err := rs.Store.ListAssociations(filter)
	return rows, err
}

// cachedExport возвращает ранее сформированную выгрузку из кэша.
// Выгрузки по отдельному клиенту или активу не кэшируются
func (rs *ReportService) cachedExport(format string, filter AssociationFilter) []byte {
	if rs.Cache == nil || filter.ClientID != nil || filter.AssetID != nil {
		return nil
	}
	val, err := rs.Cache.Get(database.Ctx, AssociationsReportKey(format, filter.Search))
	if err != nil {
		return nil
	}
	return []byte(val)
}

// storeExport кэширует сформированную выгрузку
func (rs *ReportService) storeExport(format string, filter AssociationFilter, data []byte) {
	if rs.Cache == nil || filter.ClientID != nil || filter.AssetID != nil {
		return
	}
	if err := rs.Cache.Set(database.Ctx, AssociationsReportKey(format, filter.Search), string(data), CacheTTLMedium); err != nil {
		log.Printf("Ошибка кэширования выгрузки %s: %v", format, err)
	}
}

// reportCell возвращает значение ячейки реестра для привязки
func reportCell(assoc *models.Association, header string) string {
	switch header {
	case "ID":
		return fmt.Sprintf("%d", assoc.ID)
	case "Клиент":
		return assoc.GroupClientName()
	case "Актив":
		return assoc.AssetLabel
	case "Тип актива":
		return assoc.AssetKindName
	case "Тип привязки":
		return assoc.KindDisplayName()
	case "Дата входа":
		return assoc.EntryDate.String()
	case "Дата выхода":
		if assoc.ExitDate != nil {
			return assoc.ExitDate.String()
		}
		return "-"
	case "Цена в месяц":
		return assoc.MonthlyPrice.String()
	case "Лимит трафика, ГБ":
		if assoc.DataCapGB == 0 {
			return "безлимит"
		}
		return fmt.Sprintf("%d", assoc.DataCapGB)
	}
	return ""
}

// GenerateAssociationsExcel формирует Excel-файл реестра привязок
func (rs *ReportService) GenerateAssociationsExcel(filter AssociationFilter) ([]byte, error) {
	if data := rs.cachedExport("xlsx", filter); data != nil {
		return data, nil
	}

	rows, err := rs.loadReportRows(filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Ошибка закрытия Excel файла: %v", err)
		}
	}()

	sheetName := "Привязки"
	f.SetSheetName("Sheet1", sheetName)

	// Записываем заголовки
	for i, header := range associationReportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	// Записываем данные
	for rowIdx := range rows {
		for colIdx, header := range associationReportHeaders {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, reportCell(&rows[rowIdx], header))
		}
	}

	// Добавляем автофильтр
	endCell, _ := excelize.CoordinatesToCellName(len(associationReportHeaders), len(rows)+1)
	f.AutoFilter(sheetName, "A1:"+endCell, []excelize.AutoFilterOptions{})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования Excel файла: %w", err)
	}

	rs.storeExport("xlsx", filter, buf.Bytes())
	return buf.Bytes(), nil
}

// GenerateAssociationsPDF формирует PDF-сводку реестра привязок.
// Встроенные шрифты gofpdf ограничены cp1252, поэтому весь текст
// сводки, включая пользовательские данные, транслитерируется
func (rs *ReportService) GenerateAssociationsPDF(filter AssociationFilter) ([]byte, error) {
	if data := rs.cachedExport("pdf", filter); data != nil {
		return data, nil
	}

	rows, err := rs.loadReportRows(filter)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(60, 10, "Associations registry")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 8)

	// Заголовки
	for _, header := range associationReportHeaders {
		pdf.Cell(30, 8, pdfText(header))
	}
	pdf.Ln(8)

	// Данные (количество строк в PDF ограничено)
	maxRows := 100
	for i := range rows {
		if i >= maxRows {
			pdf.Cell(30, 8, pdfText(fmt.Sprintf("... и еще %d записей", len(rows)-maxRows)))
			break
		}
		for _, header := range associationReportHeaders {
			pdf.Cell(30, 8, pdfText(reportCell(&rows[i], header)))
		}
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("ошибка формирования PDF файла: %w", err)
	}

	rs.storeExport("pdf", filter, buf.Bytes())
	return buf.Bytes(), nil
}

// translitTable таблица транслитерации кириллицы для PDF
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E", 'Ё': "E",
	'Ж': "Zh", 'З': "Z", 'И': "I", 'Й': "Y", 'К': "K", 'Л': "L", 'М': "M",
	'Н': "N", 'О': "O", 'П': "P", 'Р': "R", 'С': "S", 'Т': "T", 'У': "U",
	'Ф': "F", 'Х': "Kh", 'Ц': "Ts", 'Ч': "Ch", 'Ш': "Sh", 'Щ': "Shch",
	'Ъ': "", 'Ы': "Y", 'Ь': "", 'Э': "E", 'Ю': "Yu", 'Я': "Ya",
}

// pdfText транслитерирует кириллицу в латиницу для вывода в PDF
func pdfText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if lat, exists := translitTable[r]; exists {
			b.WriteString(lat)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
