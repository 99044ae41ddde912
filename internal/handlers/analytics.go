package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/excelytics/backend/internal/analysis"
	"github.com/excelytics/backend/internal/middleware"
	"github.com/excelytics/backend/internal/models"
	"github.com/excelytics/backend/internal/sheets"
	"github.com/excelytics/backend/internal/storage"
	"github.com/excelytics/backend/pkg/logger"
	"github.com/excelytics/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AnalyticsHandler struct {
	DB      *gorm.DB
	Storage storage.Storage
}

func NewAnalyticsHandler(db *gorm.DB, storageClient storage.Storage) *AnalyticsHandler {
	return &AnalyticsHandler{DB: db, Storage: storageClient}
}

type createAnalysisRequest struct {
	FileID      string                 `json:"fileId"`
	Kind        models.AnalysisKind    `json:"analysisType"`
	Config      map[string]interface{} `json:"config"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
}

func validAnalysisKind(kind models.AnalysisKind) bool {
	switch kind {
	case models.AnalysisKindSummary, models.AnalysisKindChart, models.AnalysisKindPivot,
		models.AnalysisKindFilter, models.AnalysisKindFormula:
		return true
	default:
		return false
	}
}

// Create runs one synchronous computation and persists the result. Nothing is
// stored unless the computation fully succeeds.
func (h *AnalyticsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	var req createAnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "name is required")
	}
	if !validAnalysisKind(req.Kind) {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput,
			"analysisType must be one of summary, chart, pivot, filter, formula")
	}

	fileID, err := parseUUID(req.FileID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "invalid fileId")
	}

	var file models.SpreadsheetFile
	if err := h.DB.First(&file, "id = ? AND owner_id = ?", fileID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, utils.CodeNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed fetching file")
	}

	config := req.Config
	if config == nil {
		config = map[string]interface{}{}
	}

	rows, targetSheet, err := h.readRows(c, &file, config)
	if err != nil {
		var badSheet *badSheetError
		if errors.As(err, &badSheet) {
			return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, badSheet.Error())
		}
		logger.Error("analysis_read_failed", err, map[string]interface{}{
			"file_id": file.ID.String(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeAnalysisFailed, "failed reading file data")
	}

	results, err := analysis.Run(req.Kind, config, rows)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidConfig) {
			return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, err.Error())
		}
		logger.Error("analysis_failed", err, map[string]interface{}{
			"file_id": file.ID.String(),
			"kind":    string(req.Kind),
		})
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeAnalysisFailed, "analysis failed")
	}

	record := models.Analysis{
		FileID:      file.ID,
		OwnerID:     currentUser.ID,
		Kind:        req.Kind,
		Config:      config,
		Results:     results,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.DB.Create(&record).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed saving analysis")
	}

	logger.InfoWithUser(currentUser.ID.String(), "analysis_created", map[string]interface{}{
		"analysis_id": record.ID.String(),
		"file_id":     file.ID.String(),
		"kind":        string(req.Kind),
		"sheet":       targetSheet,
		"row_count":   len(rows),
	})

	return utils.Success(c, fiber.StatusCreated, record)
}

type badSheetError struct {
	sheet string
}

func (e *badSheetError) Error() string {
	return fmt.Sprintf("sheet %q does not exist", e.sheet)
}

func (h *AnalyticsHandler) readRows(c *fiber.Ctx, file *models.SpreadsheetFile, config map[string]interface{}) ([]sheets.Row, string, error) {
	reader, err := h.Storage.Open(c.Context(), file.StoragePath)
	if err != nil {
		return nil, "", err
	}
	defer reader.Close()

	wb, err := sheets.Open(reader, file.FileType)
	if err != nil {
		return nil, "", err
	}
	defer wb.Close()

	targetSheet := ""
	if raw, ok := config["sheetName"].(string); ok {
		targetSheet = strings.TrimSpace(raw)
	}
	if targetSheet != "" {
		if !wb.HasSheet(targetSheet) {
			return nil, "", &badSheetError{sheet: targetSheet}
		}
	} else {
		targetSheet = wb.SheetNames()[0]
	}

	rows, err := wb.Rows(targetSheet)
	if err != nil {
		return nil, "", err
	}
	return rows, targetSheet, nil
}

func (h *AnalyticsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	var analyses []models.Analysis
	if err := h.DB.Preload("File").Where("owner_id = ?", currentUser.ID).Order("created_at DESC").Find(&analyses).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed listing analyses")
	}

	return utils.Success(c, fiber.StatusOK, analyses)
}

func (h *AnalyticsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	analysisID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "invalid analysis id")
	}

	var record models.Analysis
	if err := h.DB.Preload("File").First(&record, "id = ? AND owner_id = ?", analysisID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, utils.CodeNotFound, "analysis not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed fetching analysis")
	}

	return utils.Success(c, fiber.StatusOK, record)
}
