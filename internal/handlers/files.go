package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/excelytics/backend/internal/middleware"
	"github.com/excelytics/backend/internal/models"
	"github.com/excelytics/backend/internal/sheets"
	"github.com/excelytics/backend/internal/storage"
	"github.com/excelytics/backend/pkg/logger"
	"github.com/excelytics/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Upload limits are deployment constants, not runtime-tunable.
const MaxUploadSize = 10 * 1024 * 1024

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".csv":  true,
	".tsv":  true,
}

type FilesHandler struct {
	DB      *gorm.DB
	Storage storage.Storage
}

func NewFilesHandler(db *gorm.DB, storageClient storage.Storage) *FilesHandler {
	return &FilesHandler{DB: db, Storage: storageClient}
}

func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, utils.CodeUnauthenticated, "unauthorized")
	}

	fileHeader, err := c.FormFile("excelFile")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "file is required")
	}

	originalName := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if originalName == "" || originalName == "." {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "invalid filename")
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput,
			fmt.Sprintf("file type %s is not allowed; accepted types are .xlsx, .xlsm, .csv and .tsv", ext))
	}
	if fileHeader.Size > MaxUploadSize {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "file exceeds the 10 MiB size limit")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed opening uploaded file")
	}
	defer stream.Close()

	storageName := fmt.Sprintf("excel-%d-%s%s", time.Now().UnixMilli(), uuid.New().String(), ext)
	storagePath, err := h.Storage.Save(c.Context(), storageName, stream, fileHeader.Size)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed storing file")
	}

	sheetNames, totalRows, totalColumns, err := h.extractMetadata(c, storagePath, ext)
	if err != nil {
		_ = h.Storage.Delete(c.Context(), storagePath)
		if errors.Is(err, sheets.ErrUnreadable) {
			logger.WarnWithUser(currentUser.ID.String(), "upload_unreadable_file", map[string]interface{}{
				"original_name": originalName,
				"error":         err.Error(),
			})
			return utils.Error(c, fiber.StatusBadRequest, utils.CodeUnreadableFile, "file could not be parsed as a spreadsheet")
		}
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed reading file metadata")
	}

	entry := models.SpreadsheetFile{
		Filename:     storageName,
		OriginalName: originalName,
		StoragePath:  storagePath,
		FileSize:     fileHeader.Size,
		SheetNames:   sheetNames,
		OwnerID:      currentUser.ID,
		Status:       models.FileStatusProcessed,
		TotalRows:    totalRows,
		TotalColumns: totalColumns,
		FileType:     ext,
	}
	if err := h.DB.Create(&entry).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), storagePath)
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed creating file record")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_uploaded", map[string]interface{}{
		"file_id":       entry.ID.String(),
		"original_name": originalName,
		"file_size":     fileHeader.Size,
		"sheet_count":   len(sheetNames),
		"total_rows":    totalRows,
		"storage_path":  storagePath,
	})

	return utils.Success(c, fiber.StatusCreated, entry)
}

func (h *FilesHandler) extractMetadata(c *fiber.Ctx, storagePath, ext string) ([]string, int, int, error) {
	reader, err := h.Storage.Open(c.Context(), storagePath)
	if err != nil {
		return nil, 0, 0, err
	}
	defer reader.Close()

	wb, err := sheets.Open(reader, ext)
	if err != nil {
		return nil, 0, 0, err
	}
	defer wb.Close()

	sheetNames := wb.SheetNames()
	if len(sheetNames) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: no sheets found", sheets.ErrUnreadable)
	}

	rows, cols, err := wb.Dimension(sheetNames[0])
	if err != nil {
		return nil, 0, 0, err
	}
	return sheetNames, rows, cols, nil
}

func (h *FilesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	var files []models.SpreadsheetFile
	if err := h.DB.Where("owner_id = ?", currentUser.ID).Order("created_at DESC").Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed listing files")
	}

	return utils.Success(c, fiber.StatusOK, files)
}

// Data reads sheet rows back out of a stored file. Missing and foreign files
// are indistinguishable to the caller.
func (h *FilesHandler) Data(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "invalid file id")
	}

	var file models.SpreadsheetFile
	if err := h.DB.First(&file, "id = ? AND owner_id = ?", fileID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, utils.CodeNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed fetching file")
	}

	reader, err := h.Storage.Open(c.Context(), file.StoragePath)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed opening stored file")
	}
	defer reader.Close()

	wb, err := sheets.Open(reader, file.FileType)
	if err != nil {
		if errors.Is(err, sheets.ErrUnreadable) {
			return utils.Error(c, fiber.StatusBadRequest, utils.CodeUnreadableFile, "stored file could not be parsed")
		}
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed opening stored file")
	}
	defer wb.Close()

	targetSheet := strings.TrimSpace(c.Query("sheetName"))
	if targetSheet != "" {
		if !wb.HasSheet(targetSheet) {
			return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput,
				fmt.Sprintf("sheet %q does not exist", targetSheet))
		}
	} else {
		targetSheet = wb.SheetNames()[0]
	}

	rows, err := wb.Rows(targetSheet)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed reading sheet rows")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"sheetName":       targetSheet,
		"data":            rows,
		"availableSheets": wb.SheetNames(),
	})
}

// Delete removes both the registry record and the stored bytes; a failure in
// either step is surfaced, never swallowed.
func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, utils.CodeInvalidInput, "invalid file id")
	}

	var file models.SpreadsheetFile
	if err := h.DB.First(&file, "id = ? AND owner_id = ?", fileID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, utils.CodeNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed fetching file")
	}

	if err := h.Storage.Delete(c.Context(), file.StoragePath); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed deleting stored bytes")
	}

	if err := h.DB.Delete(&file).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, utils.CodeInternal, "failed deleting file record")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_deleted", map[string]interface{}{
		"file_id":      file.ID.String(),
		"storage_path": file.StoragePath,
	})

	return utils.Success(c, fiber.StatusOK, nil)
}
