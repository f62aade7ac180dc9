package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"github.com/SAP-F-2025/adaptive-assessment/internal/validator"
	"github.com/xuri/excelize/v2"
)

const (
	itemsSheet   = "Items"
	resultsSheet = "Results"

	// exportPageSize stays within the repository's page cap
	exportPageSize = 500
)

var (
	requiredItemColumns = []string{"id", "difficulty", "discrimination", "type", "answer_key"}

	// Export writes the same columns the importer reads, so a file can be
	// exported, edited and imported again.
	itemColumns = []string{
		"id", "difficulty", "discrimination", "type", "category", "proficiency_tag", "skill",
		"time_limit_seconds", "prompt", "option_a", "option_b", "option_c", "option_d",
		"answer_key", "audio_url", "is_active",
	}

	optionColumns = []struct{ column, id string }{
		{"option_a", "A"}, {"option_b", "B"}, {"option_c", "C"}, {"option_d", "D"},
	}
)

type importExportService struct {
	items     repositories.ItemRepository
	sessions  repositories.SessionRepository
	bank      ItemBankService
	validator *validator.Validator
	logger    *ServiceLogger
}

func NewImportExportService(items repositories.ItemRepository, sessions repositories.SessionRepository, bank ItemBankService, logger *slog.Logger, validator *validator.Validator) ImportExportService {
	return &importExportService{
		items:     items,
		sessions:  sessions,
		bank:      bank,
		validator: validator,
		logger:    NewServiceLogger(logger, LogConfig{Service: "adaptive-assessment", Component: "import_export"}),
	}
}

// ===== IMPORT OPERATIONS =====

func (s *importExportService) ImportItems(ctx context.Context, reader io.Reader, filename string) (*models.ImportSummary, error) {
	var (
		summary *models.ImportSummary
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		summary, err = s.ImportItemsFromCSV(ctx, reader)
	case ".xlsx":
		summary, err = s.ImportItemsFromExcel(ctx, reader)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Ext(filename))
	}
	if summary != nil {
		summary.FileName = filename
	}
	return summary, err
}

func (s *importExportService) ImportItemsFromCSV(ctx context.Context, reader io.Reader) (*models.ImportSummary, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, ValidationErrors{}.Add("file", fmt.Sprintf("failed to read CSV: %v", err), nil)
	}
	return s.importRows(ctx, "import_items_csv", records)
}

func (s *importExportService) ImportItemsFromExcel(ctx context.Context, reader io.Reader) (*models.ImportSummary, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, ValidationErrors{}.Add("file", fmt.Sprintf("failed to open Excel file: %v", err), nil)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ValidationErrors{}.Add("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return s.importRows(ctx, "import_items_excel", rows)
}

// importRows validates every data row independently. Valid rows are upserted
// in one batch; invalid rows are reported and skipped.
func (s *importExportService) importRows(ctx context.Context, operation string, rows [][]string) (summary *models.ImportSummary, err error) {
	op := s.logger.WithOperation(ctx, operation, "")
	start := time.Now()
	defer func() {
		if summary != nil {
			op.With(
				slog.Int("total_rows", summary.TotalRows),
				slog.Int("success_count", summary.SuccessCount),
				slog.Int("error_count", summary.ErrorCount),
			)
		}
		op.LogResult("", "item", err)
	}()

	if len(rows) < 2 {
		return nil, ValidationErrors{}.Add("file", "must have a header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}

	var missing ValidationErrors
	for _, col := range requiredItemColumns {
		if _, ok := headerMap[col]; !ok {
			missing = missing.Add("headers", "missing required column: "+col, col)
		}
	}
	if len(missing) > 0 {
		return nil, missing
	}

	summary = &models.ImportSummary{TotalRows: len(rows) - 1}
	seen := make(map[string]int)
	var items []*models.Item

	for i, record := range rows[1:] {
		rowNum := i + 2
		item, rowErrors := s.parseItemRow(record, headerMap, rowNum)
		if item != nil {
			if first, dup := seen[item.ID]; dup {
				rowErrors = append(rowErrors, models.ImportValidationError{
					Row: rowNum, Column: "id", Message: fmt.Sprintf("duplicate of row %d", first), Value: item.ID,
				})
			} else {
				seen[item.ID] = rowNum
			}
		}

		if len(rowErrors) > 0 {
			summary.Errors = append(summary.Errors, rowErrors...)
			summary.ErrorCount++
			continue
		}
		items = append(items, item)
		summary.SuccessCount++
	}

	if len(items) > 0 {
		if err := s.items.UpsertBatch(ctx, items); err != nil {
			return nil, fmt.Errorf("failed to store imported items: %w", err)
		}
		s.bank.Invalidate()
	}
	for _, item := range items {
		summary.ImportedIDs = append(summary.ImportedIDs, item.ID)
	}

	switch {
	case summary.ErrorCount == 0:
		summary.Status = models.ImportCompleted
	case summary.SuccessCount == 0:
		summary.Status = models.ImportValidationFailed
	default:
		summary.Status = models.ImportPartial
	}
	summary.ProcessingTime = time.Since(start)
	return summary, nil
}

func (s *importExportService) parseItemRow(record []string, headerMap map[string]int, rowNum int) (*models.Item, []models.ImportValidationError) {
	var errs []models.ImportValidationError
	addErr := func(column, message, value string) {
		errs = append(errs, models.ImportValidationError{Row: rowNum, Column: column, Message: message, Value: value})
	}

	getColumn := func(name string) string {
		if index, exists := headerMap[name]; exists && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}
	parseFloat := func(name string) float64 {
		raw := getColumn(name)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			addErr(name, "must be a number", raw)
		}
		return v
	}

	item := &models.Item{
		ID:             getColumn("id"),
		Difficulty:     parseFloat("difficulty"),
		Discrimination: parseFloat("discrimination"),
		Type:           models.ItemType(strings.ToLower(getColumn("type"))),
		Category:       getColumn("category"),
		ProficiencyTag: getColumn("proficiency_tag"),
		Skill:          models.LanguageSkill(strings.ToLower(getColumn("skill"))),
		Prompt:         getColumn("prompt"),
		AnswerKey:      getColumn("answer_key"),
		IsActive:       true,
	}

	if raw := getColumn("time_limit_seconds"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			addErr("time_limit_seconds", "must be a whole number of seconds", raw)
		} else {
			item.TimeLimitSeconds = &limit
		}
	}
	if raw := getColumn("audio_url"); raw != "" {
		item.AudioURL = &raw
	}
	if raw := getColumn("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			addErr("is_active", "must be true or false", raw)
		} else {
			item.IsActive = active
		}
	}

	for _, opt := range optionColumns {
		if text := getColumn(opt.column); text != "" {
			item.Options = append(item.Options, models.ItemOption{ID: opt.id, Text: text})
		}
	}

	if item.Skill != "" && !isLanguageSkill(item.Skill) {
		addErr("skill", "must be one of grammar, vocabulary, reading, listening", string(item.Skill))
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if errs := validator.ImportErrors(rowNum, s.validator.Item().Validate(item)); len(errs) > 0 {
		return item, errs
	}
	return item, nil
}

func isLanguageSkill(skill models.LanguageSkill) bool {
	for _, known := range models.LanguageSkills {
		if skill == known {
			return true
		}
	}
	return false
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportItemsToExcel(ctx context.Context, filters repositories.ItemFilters) (data []byte, err error) {
	op := s.logger.WithOperation(ctx, "export_items", "")
	defer func() { op.LogResult("", "item", err) }()

	items, err := s.listAllItems(ctx, filters)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		rows = append(rows, itemToRow(item))
	}
	op.With(slog.Int("items", len(items)))

	return writeSheet(itemsSheet, toAny(itemColumns), rows)
}

// listAllItems pages through the repository. filters.Limit caps the total
// number of items; zero means every matching item.
func (s *importExportService) listAllItems(ctx context.Context, filters repositories.ItemFilters) ([]*models.Item, error) {
	if filters.SortBy == "" {
		filters.SortBy = "id"
	}
	want := filters.Limit
	page := filters

	var items []*models.Item
	for {
		page.Limit = exportPageSize
		if want > 0 && want-len(items) < page.Limit {
			page.Limit = want - len(items)
		}

		batch, total, err := s.items.List(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to list items at offset %d: %w", page.Offset, err)
		}
		items = append(items, batch...)
		page.Offset += len(batch)

		if len(batch) < page.Limit || int64(page.Offset) >= total || (want > 0 && len(items) >= want) {
			return items, nil
		}
	}
}

func (s *importExportService) ExportSubjectResults(ctx context.Context, subjectID string) (data []byte, err error) {
	op := s.logger.WithOperation(ctx, "export_subject_results", subjectID)
	defer func() { op.LogResult(subjectID, "session_report", err) }()

	if err := authorizeSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	reports, err := s.sessions.ListReportsBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	headers := []interface{}{
		"Session ID", "Test Type", "Completed At", "Ability", "Standard Error", "Band",
		"Band Name", "Items Asked", "Correct", "Accuracy", "Timed Out", "Stop Reason", "Low Confidence",
	}
	rows := make([][]interface{}, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []interface{}{
			r.SessionID,
			string(r.TestType),
			r.CompletedAt.Format("2006-01-02 15:04:05"),
			r.AbilityEstimate,
			r.StandardError,
			r.BandCode,
			r.BandName,
			r.ItemsAsked,
			r.CorrectCount,
			r.Accuracy,
			r.TimedOutCount,
			string(r.StopReason),
			r.LowConfidence,
		})
	}
	op.With(slog.Int("reports", len(reports)))

	return writeSheet(resultsSheet, headers, rows)
}

// ===== HELPER FUNCTIONS =====

func writeSheet(sheetName string, headers []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write Excel header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write Excel row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func itemToRow(item *models.Item) []interface{} {
	options := make(map[string]string, len(item.Options))
	for _, opt := range item.Options {
		options[opt.ID] = opt.Text
	}

	row := []interface{}{
		item.ID,
		item.Difficulty,
		item.Discrimination,
		string(item.Type),
		item.Category,
		item.ProficiencyTag,
		string(item.Skill),
		"",
		item.Prompt,
	}
	if item.TimeLimitSeconds != nil {
		row[7] = *item.TimeLimitSeconds
	}
	for _, opt := range optionColumns {
		row = append(row, options[opt.id])
	}

	audioURL := ""
	if item.AudioURL != nil {
		audioURL = *item.AudioURL
	}
	return append(row, item.AnswerKey, audioURL, item.IsActive)
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
