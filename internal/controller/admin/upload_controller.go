package admin

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/controller"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/service"
	"github.com/rs/zerolog/log"
)

// multipartOverhead leaves room for the form framing around the file.
const multipartOverhead = 1 << 20

type UploadController struct {
	uploadService service.UploadService
	maxBytes      int64
}

func NewUploadController(uploadService service.UploadService, cfg *config.Config) *UploadController {
	return &UploadController{uploadService: uploadService, maxBytes: cfg.Upload.MaxBytes}
}

// Validate godoc
// @Summary (Admin) Validate a question sheet
// @Description Parses an .xlsx or .csv file and reports every row as valid, invalid or duplicate. Nothing is stored.
// @Tags Admin - Upload
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Question sheet (.xlsx or .csv)"
// @Success 200 {object} dto.UploadReport
// @Failure 400 {object} dto.ErrorResponse "No file in the request"
// @Failure 422 {object} dto.ErrorResponse "File cannot be processed (missing header, unreadable, too many rows)"
// @Router /admin/upload/validate [post]
func (c *UploadController) Validate(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBytes+multipartOverhead)
	file, filename, err := c.openUpload(ctx)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	defer file.Close()

	report, err := c.uploadService.Validate(ctx.Request.Context(), filename, file)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}

// BulkInsert godoc
// @Summary (Admin) Store the valid rows of a question sheet
// @Description Accepts the same file as validate (multipart) or the reviewed rows as JSON. Rows are validated again; only valid, non-duplicate rows are inserted.
// @Tags Admin - Upload
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param file formData file false "Question sheet (.xlsx or .csv)"
// @Param rows body dto.BulkInsertRequest false "Reviewed rows"
// @Success 201 {object} dto.BulkInsertResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /admin/upload/bulk-insert [post]
func (c *UploadController) BulkInsert(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBytes+multipartOverhead)

	var (
		resp *dto.BulkInsertResponse
		err  error
	)
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		file, filename, ferr := c.openUpload(ctx)
		if ferr != nil {
			controller.RespondError(ctx, ferr)
			return
		}
		defer file.Close()
		resp, err = c.uploadService.BulkInsertFile(ctx.Request.Context(), identity, filename, file)
	} else {
		var req dto.BulkInsertRequest
		if berr := ctx.ShouldBindJSON(&req); berr != nil {
			if isBodyTooLarge(berr) {
				controller.RespondError(ctx, apperror.Structural(service.CodeFileTooLarge, "request body is too large"))
				return
			}
			controller.RespondBindError(ctx, berr)
			return
		}
		resp, err = c.uploadService.BulkInsertRows(ctx.Request.Context(), identity, req.Rows)
	}
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	log.Info().Str("userID", identity.UserID.String()).Int("inserted", resp.Inserted).Msg("Admin bulk insert")
	ctx.JSON(http.StatusCreated, resp)
}

// openUpload reads the "file" form field. A body cut off by the size limit is
// reported as too large rather than as a missing field.
func (c *UploadController) openUpload(ctx *gin.Context) (multipart.File, string, error) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, "", apperror.Structural(service.CodeFileTooLarge, "uploaded file is too large")
		}
		return nil, "", apperror.Validation("MISSING_FILE", "multipart field 'file' is required", err.Error())
	}
	if fileHeader.Size > c.maxBytes {
		return nil, "", apperror.Structural(service.CodeFileTooLarge, "uploaded file is too large")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", apperror.Structural(service.CodeUnreadableFile, "could not open the uploaded file")
	}
	return file, fileHeader.Filename, nil
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
