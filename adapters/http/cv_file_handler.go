package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/application/service"
	uploadUC "github.com/khoahotran/talentsin/internal/application/usecase/upload"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

const (
	maxCVFileSize     = 10 << 20
	maxUploadBody     = maxCVFileSize + 1<<20
	sseKeepAlive      = 25 * time.Second
	defaultUploadType = "application/octet-stream"
)

type CVFileHandler struct {
	uploadUC *uploadUC.UploadCVUseCase
	listUC   *uploadUC.ListCVFilesUseCase
	getUC    *uploadUC.GetCVFileUseCase
	removeUC *uploadUC.RemoveCVFileUseCase
	notifier service.AnalysisNotifier
	logger   logger.Logger
}

func NewCVFileHandler(
	upload *uploadUC.UploadCVUseCase,
	list *uploadUC.ListCVFilesUseCase,
	get *uploadUC.GetCVFileUseCase,
	remove *uploadUC.RemoveCVFileUseCase,
	notifier service.AnalysisNotifier,
	log logger.Logger,
) *CVFileHandler {
	return &CVFileHandler{
		uploadUC: upload,
		listUC:   list,
		getUC:    get,
		removeUC: remove,
		notifier: notifier,
		logger:   log,
	}
}

func (h *CVFileHandler) Upload(c *gin.Context) {
	// The extra MiB covers multipart framing around a file right at the limit.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(apperror.NewInvalidInput("file exceeds 10MB", err))
			return
		}
		c.Error(apperror.NewInvalidInput("'file' is required", err))
		return
	}
	if fileHeader.Size > maxCVFileSize {
		c.Error(apperror.NewInvalidInput("file exceeds 10MB", nil))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInternal("failed to open file", err))
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultUploadType
	}

	out, err := h.uploadUC.Execute(c.Request.Context(), uploadUC.UploadCVInput{
		OwnerID:     ownerOrNil(c),
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		File:        file,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, UploadCVFileResponse{ID: out.File.ID, FileURL: out.File.FileURL})
}

func (h *CVFileHandler) List(c *gin.Context) {
	out, err := h.listUC.Execute(c.Request.Context(), uploadUC.ListCVFilesInput{OwnerID: ownerOrNil(c)})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ToCVFileDTOs(out.Files)})
}

func (h *CVFileHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "file")
	if !ok {
		return
	}
	f, err := h.getUC.Execute(c.Request.Context(), uploadUC.GetCVFileInput{OwnerID: ownerOrNil(c), FileID: id})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToCVFileDTO(f))
}

func (h *CVFileHandler) Remove(c *gin.Context) {
	id, ok := parseID(c, "file")
	if !ok {
		return
	}
	if err := h.removeUC.Execute(c.Request.Context(), uploadUC.RemoveCVFileInput{OwnerID: ownerOrNil(c), FileID: id}); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Events streams the caller's analysis notifications as server-sent events until the client leaves.
func (h *CVFileHandler) Events(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NotAuthenticated())
		return
	}
	if h.notifier == nil {
		c.Error(apperror.NewStorageUnavailable("analysis notifications are not configured", nil))
		return
	}

	ctx := c.Request.Context()
	events, cancel, err := h.notifier.Subscribe(ctx, ownerID)
	if err != nil {
		c.Error(apperror.NewStorageUnavailable("cannot subscribe to analysis events", err))
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	h.logger.Debug("SSE client connected", zap.String("owner_id", ownerID.String()))

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.EventType), ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})

	h.logger.Debug("SSE client disconnected", zap.String("owner_id", ownerID.String()))
}
