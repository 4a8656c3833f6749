package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the docgen API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docgen - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docgen", "version": "v0.1.0" },
  "paths": {
    "/api/templates": {
      "get": { "summary": "List templates", "parameters": [{"name":"category","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "templates, newest first" } } },
      "post": { "summary": "Create a template from named sections", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","sections"],"properties":{"name":{"type":"string"},"description":{"type":"string"},"category":{"type":"string"},"sections":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"},"content":{"type":"string"},"isOptional":{"type":"boolean"}}}}}}}}}, "responses": { "201": { "description": "template created" }, "400": { "description": "invalid definition" } } }
    },
    "/api/templates/upload": {
      "post": { "summary": "Upload a .docx template", "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"file":{"type":"string","format":"binary"},"name":{"type":"string"},"description":{"type":"string"},"category":{"type":"string"}}}}}}, "responses": { "201": { "description": "template with extracted variables" }, "400": { "description": "not a .docx package" }, "413": { "description": "file too large" }, "422": { "description": "template syntax error" } } }
    },
    "/api/templates/{id}": {
      "get": { "summary": "Get template metadata", "responses": { "200": { "description": "template" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Edit name, description or category", "responses": { "200": { "description": "updated" }, "400": { "description": "name or category empty" } } },
      "delete": { "summary": "Delete template record and content", "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/api/templates/{id}/content": {
      "put": { "summary": "Replace template content", "responses": { "200": { "description": "variables recomputed" } } }
    },
    "/api/templates/{id}/download": {
      "get": { "summary": "Download the template package", "responses": { "200": { "description": "docx" } } }
    },
    "/api/presets": {
      "get": { "summary": "Built-in section sets", "responses": { "200": { "description": "presets" } } }
    },
    "/api/documents/generate": {
      "post": { "summary": "Render a template", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["templateId"],"properties":{"templateId":{"type":"string"},"clientId":{"type":"string"},"policyType":{"type":"string","enum":["auto","home","life"]},"name":{"type":"string"},"variables":{"type":"object"},"strict":{"type":"boolean"},"allowPartial":{"type":"boolean"}}}}}}, "responses": { "201": { "description": "generated document reference" }, "404": { "description": "template or client not found" }, "422": { "description": "syntax, data integrity or unresolved variables" }, "503": { "description": "storage unavailable" } } }
    },
    "/api/documents": {
      "get": { "summary": "List generated documents", "parameters": [{"name":"templateId","in":"query","schema":{"type":"string"}},{"name":"clientId","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "documents, newest first" } } }
    },
    "/api/documents/{id}": {
      "get": { "summary": "Document metadata with resolved variables", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete document", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/documents/{id}/download": { "get": { "summary": "Download as attachment", "responses": { "200": { "description": "docx" } } } },
    "/api/documents/{id}/preview": { "get": { "summary": "Open inline", "responses": { "200": { "description": "docx" } } } },
    "/api/documents/{id}/link": { "post": { "summary": "Issue a signed download link", "responses": { "201": { "description": "link" }, "501": { "description": "links disabled" } } } },
    "/api/download": { "get": { "summary": "Download through a signed link", "parameters": [{"name":"token","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "docx" }, "401": { "description": "invalid, expired or revoked link" } } } },
    "/api/clients/search": { "get": { "summary": "Search clients by name, email or policy number", "parameters": [{"name":"q","in":"query","schema":{"type":"string","minLength":2}}], "responses": { "200": { "description": "up to 5 clients" } } } },
    "/api/clients/{id}/details": { "get": { "summary": "Client, default address and active policies", "responses": { "200": { "description": "details" }, "404": { "description": "not found" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
