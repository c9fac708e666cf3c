package srv

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/opd-ai/fileproc/extract"
	"github.com/opd-ai/fileproc/pdfgen"
	"github.com/opd-ai/fileproc/srv/util"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "File Processor Service is running!",
		"version": ServiceVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcessFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "multipart field 'file' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		util.ErrorLogger.Printf("reading upload: %v", err)
		http.Error(w, "failed to read upload", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		http.Error(w, fmt.Sprintf("file larger than %d MB", s.cfg.MaxUploadBytes>>20), http.StatusRequestEntityTooLarge)
		return
	}

	contentType := header.Header.Get("Content-Type")
	text, err := s.extractText(header.Filename, contentType, data)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		util.ErrorLogger.Printf("extraction failed for %s: %v", header.Filename, err)
		http.Error(w, "extraction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("return_as") == "txt" {
		disp := "inline"
		if r.URL.Query().Get("download") == "true" {
			disp = "attachment"
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disp, txtFilename(header.Filename)))
		w.Write([]byte(text))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filename":       header.Filename,
		"content_type":   contentType,
		"length":         len(text),
		"extracted_text": text,
	})
}

// extractText serves repeated uploads of identical content from the digest
// cache instead of re-running the extractor.
func (s *Server) extractText(filename, contentType string, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:]) + "|" + strings.ToLower(filepath.Ext(filename)) + "|" + contentType
	if cached, ok := s.extracted.Get(key); ok {
		return cached.(string), nil
	}
	text, err := extract.Text(filename, contentType, data)
	if err != nil {
		return "", err
	}
	s.extracted.Set(key, text, cache.DefaultExpiration)
	return text, nil
}

func (s *Server) handleCreatePDF(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > s.cfg.MaxUploadBytes {
		http.Error(w, fmt.Sprintf("request larger than %d MB", s.cfg.MaxUploadBytes>>20), http.StatusRequestEntityTooLarge)
		return
	}

	var doc pdfgen.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	res, err := s.generator.Generate(&doc)
	if err != nil {
		util.ErrorLogger.Printf("pdf generation failed: %v", err)
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	disp := "attachment"
	if r.URL.Query().Get("download") == "false" {
		disp = "inline"
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disp, res.Filename))
	w.Write(res.Bytes)
}

// statusForError maps generator error kinds onto HTTP status codes.
func statusForError(err error) int {
	switch pdfgen.KindOf(err) {
	case pdfgen.KindValidation, pdfgen.KindNetwork, pdfgen.KindDecode:
		return http.StatusBadRequest
	case pdfgen.KindResourceLimit:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// txtFilename derives the download name for extracted text: the upload's
// base name without extension, spaces replaced, with .txt forced.
func txtFilename(upload string) string {
	base := strings.TrimSuffix(filepath.Base(upload), filepath.Ext(upload))
	base = strings.ReplaceAll(strings.TrimSpace(base), " ", "_")
	if base == "" || base == "." {
		base = "file"
	}
	return base + ".txt"
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		util.ErrorLogger.Printf("encoding response: %v", err)
	}
}
