package api

import (
	"net/http"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/service"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// RequestExport 新建任务返回202, 复用已有任务返回200
func (h *ExportHandler) RequestExport(c *gin.Context) {
	subjectID, ok := getUintParam(c, "subject_id")
	if !ok {
		return
	}

	job, created, err := h.exportService.RequestExport(c.Request.Context(), subjectID, c.Param("kind"))
	if err != nil {
		respondError(c, err, "Failed to request export")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	c.JSON(status, jobResponse(job))
}

func (h *ExportHandler) Poll(c *gin.Context) {
	job, err := h.exportService.Poll(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err, "Failed to load export job")
		return
	}
	c.JSON(http.StatusOK, jobResponse(job))
}

func (h *ExportHandler) ListForSubject(c *gin.Context) {
	subjectID, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	jobs, err := h.exportService.ListForSubject(c.Request.Context(), subjectID)
	if err != nil {
		respondError(c, err, "Failed to list export jobs")
		return
	}

	items := make([]gin.H, 0, len(jobs))
	for i := range jobs {
		item := jobResponse(&jobs[i])
		item["kind"] = jobs[i].Kind
		item["created_at"] = jobs[i].CreatedAt
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"exports": items})
}

func jobResponse(job *model.ExportJob) gin.H {
	return gin.H{
		"id":     job.ID,
		"status": job.Status,
		"url":    job.URL,
		"error":  job.Error,
	}
}
