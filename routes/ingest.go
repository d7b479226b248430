package routes

import (
	"encoding/json"
	"io"
	"net/http"

	"docuchat-backend/internal/config"
	"docuchat-backend/internal/ingest"
	"docuchat-backend/internal/logger"
	"docuchat-backend/internal/store"
	"docuchat-backend/internal/telemetry"
	"docuchat-backend/utils"

	"github.com/gin-gonic/gin"
)

// SetupIngestRoutes wires the ingestion boundary: URL scraping and document
// uploads, both landing in the shared document store.
func SetupIngestRoutes(router *gin.Engine, cfg *config.Config, ingestor *ingest.Ingestor, docStore store.DocumentStore, metrics *telemetry.Metrics) {
	router.POST("/scrape", func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", gin.H{"error": err.Error()})
			return
		}

		var urls []string
		if raw := c.Request.FormValue("urls"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &urls); err != nil {
				utils.RespondWithBadRequest(c, "urls must be a JSON array of strings", gin.H{"error": err.Error()})
				return
			}
		}

		var files []ingest.File
		if form := c.Request.MultipartForm; form != nil {
			for _, header := range form.File["files"] {
				if header.Size > cfg.MaxFileSize {
					utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
						"File size exceeds maximum limit", gin.H{"file": header.Filename})
					return
				}

				f, err := header.Open()
				if err != nil {
					utils.RespondWithInternalError(c, "Failed to open upload", gin.H{"file": header.Filename})
					return
				}
				data, err := io.ReadAll(io.LimitReader(f, hdrLimit(header.Size, cfg.MaxFileSize)))
				f.Close()
				if err != nil {
					utils.RespondWithInternalError(c, "Failed to read upload", gin.H{"file": header.Filename})
					return
				}
				files = append(files, ingest.File{Name: header.Filename, Data: data})
			}
		}

		if len(urls) == 0 && len(files) == 0 {
			utils.RespondWithBadRequest(c, "No URLs or files provided", nil)
			return
		}

		ctx := c.Request.Context()

		if len(urls) > 0 {
			if err := ingestor.SubmitURLs(ctx, urls); err != nil {
				logger.Error("URL ingestion failed", "error", err)
				utils.RespondWithPipelineError(c, err)
				return
			}
			if metrics != nil {
				metrics.RecordIngest("url", int64(len(urls)))
			}
		}

		if len(files) > 0 {
			if err := ingestor.SubmitFiles(ctx, "files", files); err != nil {
				logger.Error("File ingestion failed", "error", err)
				utils.RespondWithPipelineError(c, err)
				return
			}
			if metrics != nil {
				metrics.RecordIngest("file", int64(len(files)))
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "Successfully processed"})
	})

	// Store listing for debugging ingestion state.
	router.GET("/documents", func(c *gin.Context) {
		files, err := docStore.List(c.Request.Context())
		if err != nil {
			logger.Error("Store listing failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to list document store", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"documents": files,
			"total":     len(files),
		})
	})
}

func hdrLimit(size, max int64) int64 {
	if size > 0 && size < max {
		return size
	}
	return max
}
