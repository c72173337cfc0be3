package httpserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/foxseedlab/segscribe/internal/job"
	"github.com/foxseedlab/segscribe/internal/repository"
	"github.com/foxseedlab/segscribe/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errNoFileUploaded     = "no file uploaded"
	errNoFileSelected     = "no file selected"
	errUnsupportedType    = "unsupported file type"
	errTokenNotConfigured = "API token is not configured"
	errFileTooLarge       = "file too large"
	errFileNotFound       = "file not found"
	errJobNotFound        = "job not found"
)

//go:embed web/index.html
var indexHTML []byte

type JobProcessor interface {
	Process(ctx context.Context, in job.Input) (*job.Output, error)
}

type Handlers struct {
	cfg       *config.Config
	processor JobProcessor
	repo      repository.Repository
}

func NewHandlers(cfg *config.Config, processor JobProcessor, repo repository.Repository) *Handlers {
	return &Handlers{cfg: cfg, processor: processor, repo: repo}
}

func (h *Handlers) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Upload validates the multipart "file" field, transcribes it synchronously and
// removes the uploaded media afterwards.
func (h *Handlers) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes())
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errFileTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoFileUploaded})
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		// A file part with an empty filename is parsed as a plain form value.
		if _, ok := form.Value["file"]; ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": errNoFileSelected})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoFileUploaded})
		return
	}
	fh := files[0]
	if fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoFileSelected})
		return
	}
	if !upload.AllowedFile(fh.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUnsupportedType})
		return
	}
	if h.cfg.RequiresAPIToken() && h.cfg.APIToken == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errTokenNotConfigured})
		return
	}

	name := storedFilename(fh.Filename)
	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("create upload dir: %v", err)})
		return
	}
	dst := filepath.Join(h.cfg.UploadDir, name)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("save upload: %v", err)})
		return
	}
	defer func() {
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			_ = c.Error(err)
		}
	}()

	out, err := h.processor.Process(c.Request.Context(), job.Input{Path: dst, Filename: name})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transcription failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"text":     out.Text,
		"filename": out.ResultFilename,
		"job_id":   out.JobID,
	})
}

func (h *Handlers) Download(c *gin.Context) {
	name := c.Param("filename")
	if !upload.IsSafeDownloadName(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": errFileNotFound})
		return
	}
	path := filepath.Join(h.cfg.UploadDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": errFileNotFound})
		return
	}
	c.FileAttachment(path, name)
}

func (h *Handlers) GetJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	j, err := h.repo.GetJob(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}
	if j == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	segments, err := h.repo.ListSegmentsByJobID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job segments"})
		return
	}
	c.JSON(http.StatusOK, newJobResponse(j, segments))
}

// storedFilename sanitizes the client filename. When sanitizing strips the
// extension, a random name keeping the original extension is used instead.
func storedFilename(original string) string {
	name := upload.SecureFilename(original)
	if upload.AllowedFile(name) {
		return name
	}
	ext := strings.ToLower(original[strings.LastIndexByte(original, '.')+1:])
	return fmt.Sprintf("upload_%s.%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
}
