// Package handler exposes templates and generated documents over HTTP.
package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/document"
	"github.com/insuredocs/docgen/internal/document/repository"
	"github.com/insuredocs/docgen/internal/document/service"
	"github.com/insuredocs/docgen/internal/presets"
	"github.com/insuredocs/docgen/internal/storage"
	"github.com/insuredocs/docgen/pkg/logger"
	"github.com/insuredocs/docgen/pkg/middleware"
)

// DefaultMaxUpload caps template uploads when no limit is configured.
const DefaultMaxUpload = 20 << 20

type Handler struct {
	templates *service.TemplateService
	generator *service.Generator
	documents *service.DocumentService
	maxUpload int64
}

func New(templates *service.TemplateService, generator *service.Generator, documents *service.DocumentService, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{templates: templates, generator: generator, documents: documents, maxUpload: maxUpload}
}

// Register mounts the template, preset and document routes under r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/presets", h.listPresets)

	t := r.Group("/api/templates")
	t.GET("", h.listTemplates)
	t.POST("", h.createTemplate)
	t.POST("/upload", h.uploadTemplate)
	t.GET("/:id", h.getTemplate)
	t.PATCH("/:id", h.patchTemplate)
	t.PUT("/:id/content", h.replaceContent)
	t.GET("/:id/download", h.downloadTemplate)
	t.DELETE("/:id", h.deleteTemplate)

	d := r.Group("/api/documents")
	d.GET("", h.listDocuments)
	d.POST("/generate", h.generate)
	d.GET("/:id", h.getDocument)
	d.GET("/:id/download", h.downloadDocument)
	d.GET("/:id/preview", h.previewDocument)
	d.POST("/:id/link", h.signedLink)
	d.DELETE("/:id", h.deleteDocument)

	if secret := h.documents.LinkSecret(); secret != "" {
		r.GET("/api/download", middleware.DownloadLinkMiddleware(secret), h.downloadByLink)
	}
}

// respondError writes err using the taxonomy status and a details field
// with the structured context the error carries.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{"error": err.Error()}

	var (
		unresolved *apperr.UnresolvedVariableError
		syntax     *apperr.TemplateSyntaxError
		integrity  *apperr.DataIntegrityError
		invalid    *apperr.InvalidRequestError
	)
	switch {
	case errors.As(err, &unresolved):
		body["details"] = gin.H{"missing": unresolved.Names}
	case errors.As(err, &syntax):
		body["details"] = gin.H{"fragment": syntax.Fragment, "reason": syntax.Reason}
	case errors.As(err, &integrity):
		body["details"] = gin.H{"policyId": integrity.PolicyID, "field": integrity.Field, "expected": integrity.Expected}
	case errors.As(err, &invalid):
		body["details"] = gin.H{"field": invalid.Field}
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

func (h *Handler) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, presets.All())
}

func (h *Handler) listTemplates(c *gin.Context) {
	list, err := h.templates.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []*document.Template{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getTemplate(c *gin.Context) {
	tpl, err := h.templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// readUpload returns the "file" part of a multipart request.
func (h *Handler) readUpload(c *gin.Context) (*multipart.FileHeader, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large", "details": fmt.Sprintf("limit is %d bytes", h.maxUpload)})
			return nil, nil, false
		}
		badRequest(c, "no file uploaded", err)
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "cannot read upload", err)
		return nil, nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "cannot read upload", err)
		return nil, nil, false
	}
	return fh, data, true
}

func (h *Handler) uploadTemplate(c *gin.Context) {
	fh, data, ok := h.readUpload(c)
	if !ok {
		return
	}
	tpl, err := h.templates.Upload(c.Request.Context(), service.UploadInput{
		Filename:    fh.Filename,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Data:        data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *Handler) createTemplate(c *gin.Context) {
	var in service.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid template definition", err)
		return
	}
	tpl, err := h.templates.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *Handler) patchTemplate(c *gin.Context) {
	var p document.TemplatePatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	tpl, err := h.templates.Patch(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *Handler) replaceContent(c *gin.Context) {
	fh, data, ok := h.readUpload(c)
	if !ok {
		return
	}
	tpl, err := h.templates.ReplaceContent(c.Request.Context(), c.Param("id"), fh.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *Handler) downloadTemplate(c *gin.Context) {
	tpl, data, err := h.templates.Content(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	name := tpl.Filename
	if name == "" {
		name = tpl.Name + ".docx"
	}
	sendDocx(c, name, data, "attachment")
}

func (h *Handler) deleteTemplate(c *gin.Context) {
	if err := h.templates.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid generation request", err)
		return
	}
	res, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"document":    res.Document,
		"downloadUrl": "/api/documents/" + res.Document.ID + "/download",
		"warnings":    res.Warnings,
	})
}

func (h *Handler) listDocuments(c *gin.Context) {
	list, err := h.documents.List(c.Request.Context(), repository.GeneratedFilter{
		TemplateID: c.Query("templateId"),
		ClientID:   c.Query("clientId"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []*document.Generated{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getDocument(c *gin.Context) {
	d, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) sendDocument(c *gin.Context, id, disposition string) {
	d, data, err := h.documents.Content(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	sendDocx(c, d.Name, data, disposition)
}

func (h *Handler) downloadDocument(c *gin.Context) {
	h.sendDocument(c, c.Param("id"), "attachment")
}

func (h *Handler) previewDocument(c *gin.Context) {
	h.sendDocument(c, c.Param("id"), "inline")
}

func (h *Handler) downloadByLink(c *gin.Context) {
	h.sendDocument(c, c.GetString(middleware.DocumentIDKey), "attachment")
}

func (h *Handler) signedLink(c *gin.Context) {
	link, err := h.documents.SignedLink(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrLinksDisabled) {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"url":       "/api/download?token=" + url.QueryEscape(link.Token),
		"token":     link.Token,
		"expiresAt": link.ExpiresAt,
		"directUrl": link.DirectURL,
	})
}

func (h *Handler) deleteDocument(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func sendDocx(c *gin.Context, filename string, data []byte, disposition string) {
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q; filename*=UTF-8''%s", disposition, filename, url.PathEscape(filename)))
	c.Data(http.StatusOK, storage.DocxContentType, data)
}
