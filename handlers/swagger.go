package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the content API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
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
    <title>folio API - Swagger</title>
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
  "info": { "title": "folio content API", "version": "v1.0.0" },
  "paths": {
    "/api/data": {
      "get": { "summary": "Whole site document (admin password removed)", "responses": { "200": { "description": "document" } } }
    },
    "/api/settings": {
      "post": { "summary": "Merge settings keys", "requestBody": { "content": { "application/json": { "schema": {"type":"object"}}}}, "responses": { "200": { "description": "merged settings" }, "400": { "description": "body is not an object" } } }
    },
    "/api/upload/{target}": {
      "post": {
        "summary": "Upload a file as a data URI (background, music, certCover, videoCover, workflowCover, media)",
        "parameters": [{ "name": "target", "in": "path", "required": true, "schema": {"type":"string"} }],
        "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"file":{"type":"string","format":"binary"},"title":{"type":"string"},"description":{"type":"string"},"type":{"type":"string"},"link":{"type":"string"}}}}}},
        "responses": { "200": { "description": "{url} or the created media item" }, "400": { "description": "no file uploaded" }, "413": { "description": "file too large" } }
      }
    },
    "/api/{collection}": {
      "post": {
        "summary": "Append an item to projects, agents, tools, certificates, articles or media",
        "parameters": [{ "name": "collection", "in": "path", "required": true, "schema": {"type":"string"} }],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object"}}, "multipart/form-data": { "schema": {"type":"object","properties":{"icon":{"type":"string","format":"binary"},"image":{"type":"string","format":"binary"},"cover":{"type":"string","format":"binary"}}}}}},
        "responses": { "200": { "description": "created item with assigned id" } }
      }
    },
    "/api/{collection}/{id}": {
      "delete": { "summary": "Remove an item by id (missing ids are a no-op)", "responses": { "200": { "description": "success" } } }
    },
    "/api/verify-password": {
      "post": { "summary": "Check the admin password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "success, optional admin token" }, "401": { "description": "incorrect password" } } }
    },
    "/api/logout": {
      "post": { "summary": "Revoke the bearer admin token", "responses": { "200": { "description": "logged out" }, "401": { "description": "token could not be parsed" } } }
    },
    "/api/deploy": {
      "post": { "summary": "Commit and push the data file", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"proxy":{"type":"string"}}}}}}, "responses": { "200": { "description": "pushed or skipped" }, "409": { "description": "rebase conflict" }, "500": { "description": "git failure" } } }
    },
    "/api/chat": {
      "post": { "summary": "Ask the portfolio assistant", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"message":{"type":"string"},"sessionId":{"type":"string"},"history":{"type":"array","items":{"type":"object","properties":{"role":{"type":"string"},"content":{"type":"string"}}}}}}}}}, "responses": { "200": { "description": "reply" }, "502": { "description": "assistant endpoint failed; reply explains" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
