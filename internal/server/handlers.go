package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paperqa/internal/adapter/extractor"
	"paperqa/internal/domain"
)

type chatRequest struct {
	PaperID string `json:"paperId" binding:"required"`
	Query   string `json:"query" binding:"required"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, "paperId and query are required")
		return
	}

	ans, err := s.deps.Asker.Ask(c.Request.Context(), req.PaperID, req.Query)
	if err != nil {
		s.writeError(c, req.PaperID, err)
		return
	}
	c.JSON(http.StatusOK, ans)
}

type uploadedPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

type uploadResponse struct {
	Filename string         `json:"filename"`
	Pages    []uploadedPage `json:"pages"`
	PaperID  string         `json:"paper_id,omitempty"`
	Vectors  *int           `json:"vectors,omitempty"`
}

var errTooLarge = errors.New("upload exceeds limit")

func (s *Server) upload(c *gin.Context) {
	limit := s.deps.Config.MaxUploadBytes
	if c.Request.ContentLength > limit {
		abort(c, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	part, err := filePart(c.Request)
	if err != nil {
		abort(c, http.StatusBadRequest, "Missing file field")
		return
	}
	defer part.Close()

	name := filepath.Base(part.FileName())
	mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
	if mediaType != "application/pdf" || !strings.HasSuffix(strings.ToLower(name), ".pdf") || name == ".pdf" {
		abort(c, http.StatusBadRequest, "Only PDF files allowed")
		return
	}

	body := bufio.NewReader(part)
	if head, _ := body.Peek(5); !extractor.IsPDF(head) {
		abort(c, http.StatusBadRequest, "Invalid PDF signature")
		return
	}

	dest, err := s.saveWithLimit(body, name, limit)
	if errors.Is(err, errTooLarge) {
		abort(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d MiB limit", limit/(1024*1024)))
		return
	}
	if err != nil {
		s.logger.Error("failed to store upload", zap.String("filename", name), zap.Error(err))
		abort(c, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	ctx := c.Request.Context()
	pages, err := s.deps.Extractor.ExtractPages(ctx, dest)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedSource) {
			abort(c, http.StatusUnprocessableEntity, "Malformed PDF—could not parse")
			return
		}
		s.logger.Error("failed to read upload", zap.String("filename", name), zap.Error(err))
		abort(c, http.StatusInternalServerError, "Unexpected error reading PDF")
		return
	}

	resp := uploadResponse{Filename: name, Pages: make([]uploadedPage, 0, len(pages))}
	for _, p := range pages {
		resp.Pages = append(resp.Pages, uploadedPage{Page: p.Number, Text: p.Text})
	}

	if c.Query("index") == "true" {
		if s.deps.Indexer == nil {
			abort(c, http.StatusBadRequest, "Indexing is not enabled on this server")
			return
		}
		docID := domain.DocumentID(name)
		n, err := s.deps.Indexer.IndexDocument(ctx, docID, name, pages)
		if err != nil {
			s.writeError(c, docID, err)
			return
		}
		resp.PaperID = docID
		resp.Vectors = &n
	}

	c.JSON(http.StatusOK, resp)
}

// filePart returns the multipart part named "file" without buffering the
// request body.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		p, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if p.FormName() == "file" && p.FileName() != "" {
			return p, nil
		}
		p.Close()
	}
}

// saveWithLimit streams r into the upload dir. A partial file is removed
// when r holds more than limit bytes.
func (s *Server) saveWithLimit(r io.Reader, name string, limit int64) (string, error) {
	dir := s.deps.Config.UploadDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+name+"-*.part")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = errTooLarge
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return dest, nil
}
