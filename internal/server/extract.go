package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/export"
	"github.com/joseph-ayodele/pdftoxl/internal/pipeline"
)

const (
	formFiles      = "files"
	formTemplateID = "template_id"

	msgNoFiles         = "No files were uploaded."
	msgInvalidTemplate = "Invalid template ID provided."
	msgInvalidForm     = "Invalid form data."
	msgExportFailed    = "Could not build the spreadsheet."
)

type fileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

type errorResponse struct {
	Detail string      `json:"detail"`
	Errors []fileError `json:"errors,omitempty"`
}

// extract handles POST /extract/ and its aliases: multipart "files" plus
// "template_id" in, one workbook out.
func (s *Server) extract(c *gin.Context) {
	ctx := c.Request.Context()
	logger := common.LoggerFromContext(ctx, s.logger)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds the %d MB limit.", tooLarge.Limit>>20), nil)
			return
		}
		logger.Warn("http.extract.bad_form", "err", err)
		s.fail(c, http.StatusBadRequest, msgInvalidForm, nil)
		return
	}

	headers := form.File[formFiles]
	if len(headers) == 0 {
		s.fail(c, http.StatusBadRequest, msgNoFiles, nil)
		return
	}
	var templateID string
	if v := form.Value[formTemplateID]; len(v) > 0 {
		templateID = v[0]
	}
	tpl, err := s.catalog.Lookup(templateID)
	if err != nil {
		s.fail(c, http.StatusBadRequest, msgInvalidTemplate, nil)
		return
	}

	uploads, err := readUploads(headers)
	if err != nil {
		err = internalError(msgInvalidForm, err)
		logger.Error("http.extract.read_failed", "err", err)
		s.fail(c, http.StatusInternalServerError, common.Message(err), nil)
		return
	}

	data, results, err := s.batch.Run(ctx, tpl, uploads)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, common.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		s.fail(c, status, common.Message(err), results)
		return
	}

	out, err := s.export.ExportXLSX(ctx, data, tpl)
	if errors.Is(err, export.ErrNoTables) {
		s.fail(c, http.StatusInternalServerError, pipeline.MsgNoData, results)
		return
	}
	if err != nil {
		err = internalError(msgExportFailed, err)
		logger.Error("http.extract.export_failed", "err", err)
		s.fail(c, http.StatusInternalServerError, common.Message(err), results)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+constants.OutputFilename)
	c.Data(http.StatusOK, constants.ContentTypeXLSX, out)
}

func (s *Server) fail(c *gin.Context, status int, detail string, results []pipeline.FileResult) {
	resp := errorResponse{Detail: detail}
	for _, r := range results {
		if !r.OK() {
			resp.Errors = append(resp.Errors, fileError{File: r.Filename, Error: r.Err.Message})
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

// internalError marks cause as a server-side failure reported to the client as detail.
func internalError(detail string, cause error) error {
	return common.NewAppError("INTERNAL", detail, fmt.Errorf("%w: %w", common.ErrInternal, cause))
}

func readUploads(headers []*multipart.FileHeader) ([]pipeline.Upload, error) {
	uploads := make([]pipeline.Upload, 0, len(headers))
	for _, fh := range headers {
		content, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
		}
		uploads = append(uploads, pipeline.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return uploads, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
