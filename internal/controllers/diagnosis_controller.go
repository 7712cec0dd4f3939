package controllers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/meetgeetha/cicd-debugger/internal/services"
)

// maxLogSize caps uploaded log content at 5 MiB. Size limits are a transport
// concern; the pipeline never sees oversized input.
const maxLogSize = 5 << 20

type DiagnosisController struct {
	diagnosisService *services.DiagnosisService
	llmService       *services.LLMService
	store            *services.FailureStore
}

func NewDiagnosisController(diagnosisService *services.DiagnosisService, llmService *services.LLMService, store *services.FailureStore) *DiagnosisController {
	return &DiagnosisController{
		diagnosisService: diagnosisService,
		llmService:       llmService,
		store:            store,
	}
}

type analyzeRequest struct {
	Log    string `json:"log"`
	Source string `json:"source"`
}

// AnalyzeLog diagnoses a single build log. The log arrives either as a
// multipart file upload (field "logfile", .log/.txt/.json) or as a JSON body.
func (dc *DiagnosisController) AnalyzeLog(c *gin.Context) {
	logText, source, ok := dc.readLogContent(c)
	if !ok {
		return
	}

	diagnosis, err := dc.diagnosisService.Diagnose(c.Request.Context(), logText, source)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyLog):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Log content is empty"})
		case errors.Is(err, services.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failure store is unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze log"})
		}
		return
	}

	c.JSON(http.StatusOK, diagnosis)
}

func (dc *DiagnosisController) readLogContent(c *gin.Context) (string, string, bool) {
	if file, err := c.FormFile("logfile"); err == nil {
		ext := filepath.Ext(file.Filename)
		if ext != ".json" && ext != ".log" && ext != ".txt" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only JSON, LOG, and TXT files are supported"})
			return "", "", false
		}
		if file.Size > maxLogSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Log file exceeds the 5MB limit"})
			return "", "", false
		}

		opened, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
			return "", "", false
		}
		defer opened.Close()

		content, err := io.ReadAll(io.LimitReader(opened, maxLogSize))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
			return "", "", false
		}
		return string(content), file.Filename, true
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide a log file upload or a JSON body with a 'log' field"})
		return "", "", false
	}
	if len(req.Log) > maxLogSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Log content exceeds the 5MB limit"})
		return "", "", false
	}
	return req.Log, req.Source, true
}

// SearchFailures returns stored failures semantically similar to the query.
func (dc *DiagnosisController) SearchFailures(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	summaries, err := dc.diagnosisService.Search(c.Request.Context(), query, limit)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyLog):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		case errors.Is(err, services.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failure store is unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": summaries,
		"count":   len(summaries),
	})
}

// GetStats reports stored failure counts by category and severity.
func (dc *DiagnosisController) GetStats(c *gin.Context) {
	stats, err := dc.diagnosisService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failure store is unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRecentFailures lists stored failures, newest first, with pagination.
func (dc *DiagnosisController) GetRecentFailures(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	failures, total, err := dc.store.Recent(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stored failures"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"failures": failures,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetLLMStatus reports whether the LLM endpoint is reachable and which
// models it serves.
func (dc *DiagnosisController) GetLLMStatus(c *gin.Context) {
	if err := dc.llmService.CheckLLMHealth(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"available": false,
			"error":     err.Error(),
		})
		return
	}

	models, err := dc.llmService.GetAvailableModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"available": true,
			"models":    []string{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available": true,
		"models":    models,
	})
}
