package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"github.com/SAP-F-2025/adaptive-assessment/internal/services"
	"github.com/SAP-F-2025/adaptive-assessment/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxImportSize bounds uploaded calibration files
const maxImportSize = 10 << 20

type ItemHandler struct {
	BaseHandler
	itemService         services.ItemBankService
	importExportService services.ImportExportService
}

func NewItemHandler(
	itemService services.ItemBankService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *ItemHandler {
	return &ItemHandler{
		BaseHandler:         NewBaseHandler(logger),
		itemService:         itemService,
		importExportService: importExportService,
	}
}

// CreateItem adds one calibrated item to the bank
// @Summary Create item
// @Tags items
// @Accept json
// @Produce json
// @Param item body services.CreateItemRequest true "Item data"
// @Success 201 {object} models.Item
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /items [post]
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req services.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating item", "item_id", req.ID, "type", req.Type)

	item, err := h.itemService.CreateItem(requestContext(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// GetItem returns one item
// @Summary Get item
// @Tags items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} models.Item
// @Failure 404 {object} ErrorResponse
// @Router /items/{id} [get]
func (h *ItemHandler) GetItem(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	item, err := h.itemService.GetItem(requestContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// ListItems lists items with optional filters
// @Summary List items
// @Tags items
// @Produce json
// @Param type query string false "Item type"
// @Param category query string false "Category"
// @Param skill query string false "Language skill"
// @Param active_only query bool false "Only active items"
// @Param min_difficulty query number false "Minimum difficulty"
// @Param max_difficulty query number false "Maximum difficulty"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Param sort_by query string false "id, difficulty or created_at"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} services.ItemListResponse
// @Router /items [get]
func (h *ItemHandler) ListItems(c *gin.Context) {
	filters, ok := parseItemFilters(c)
	if !ok {
		return
	}

	resp, err := h.itemService.ListItems(requestContext(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ImportItems imports calibrated items from an uploaded CSV or XLSX file
// @Summary Import items
// @Tags items
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Success 200 {object} models.ImportSummary
// @Failure 400 {object} ErrorResponse
// @Router /items/import [post]
func (h *ItemHandler) ImportItems(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing upload",
			Details: "expected a multipart field named file",
		})
		return
	}
	if fileHeader.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "File too large",
			Details: fmt.Sprintf("limit is %d bytes", maxImportSize),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.LogError(c, err, "Failed to open upload", "filename", fileHeader.Filename)
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unreadable upload"})
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing items", "filename", fileHeader.Filename, "size", fileHeader.Size)

	summary, err := h.importExportService.ImportItems(requestContext(c), file, fileHeader.Filename)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportItems downloads the filtered items as an XLSX workbook
// @Summary Export items
// @Tags items
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /items/export [get]
func (h *ItemHandler) ExportItems(c *gin.Context) {
	filters, ok := parseItemFilters(c)
	if !ok {
		return
	}

	data, err := h.importExportService.ExportItemsToExcel(requestContext(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	sendWorkbook(c, fmt.Sprintf("items-%s.xlsx", time.Now().UTC().Format("20060102")), data)
}

// ExportSubjectResults downloads every session report of one test-taker
// @Summary Export subject results
// @Tags results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param subject_id path string true "Subject ID"
// @Success 200 {file} file
// @Router /results/{subject_id}/export [get]
func (h *ItemHandler) ExportSubjectResults(c *gin.Context) {
	subjectID := ParseStringIDParam(c, "subject_id")
	if subjectID == "" {
		return
	}

	data, err := h.importExportService.ExportSubjectResults(requestContext(c), subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	sendWorkbook(c, fmt.Sprintf("results-%s.xlsx", subjectID), data)
}

func sendWorkbook(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func parseItemFilters(c *gin.Context) (repositories.ItemFilters, bool) {
	limit, offset, ok := parsePagination(c)
	if !ok {
		return repositories.ItemFilters{}, false
	}

	filters := repositories.ItemFilters{
		Category:       c.Query("category"),
		ProficiencyTag: c.Query("proficiency_tag"),
		Limit:          limit,
		Offset:         offset,
		SortBy:         c.Query("sort_by"),
		SortOrder:      c.Query("sort_order"),
	}

	if raw := c.Query("type"); raw != "" {
		t := models.ItemType(raw)
		if !t.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid type", Details: raw})
			return filters, false
		}
		filters.Type = &t
	}
	if raw := c.Query("skill"); raw != "" {
		skill := models.LanguageSkill(raw)
		filters.Skill = &skill
	}
	if raw := c.Query("active_only"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid active_only", Details: raw})
			return filters, false
		}
		filters.ActiveOnly = active
	}
	for name, target := range map[string]**float64{
		"min_difficulty": &filters.MinDifficulty,
		"max_difficulty": &filters.MaxDifficulty,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid " + name, Details: raw})
			return filters, false
		}
		*target = &v
	}

	return filters, true
}
