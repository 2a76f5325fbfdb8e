package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the gateway.
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
    <title>ssogate — Swagger</title>
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

// Minimal OpenAPI document describing the SSO endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "ssogate", "version": "v0.1.0" },
  "paths": {
    "/auth/google": {
      "get": { "summary": "Start the Google SSO handshake", "responses": { "302": { "description": "redirect to the Google consent page" } } }
    },
    "/auth/google/callback": {
      "get": {
        "summary": "Google SSO callback",
        "parameters": [
          {"name":"code","in":"query","schema":{"type":"string"}},
          {"name":"state","in":"query","schema":{"type":"string"}},
          {"name":"error","in":"query","schema":{"type":"string"}}
        ],
        "responses": { "200": { "description": "token and user (json mode)" }, "302": { "description": "redirect with token or error code (redirect mode)" }, "401": { "description": "provider denied the handshake" }, "403": { "description": "email conflict or missing email" }, "500": { "description": "handshake or store failure" } }
      }
    },
    "/auth/github": {
      "get": { "summary": "Start the GitHub SSO handshake", "responses": { "302": { "description": "redirect to the GitHub consent page" } } }
    },
    "/auth/github/callback": {
      "get": { "summary": "GitHub SSO callback", "responses": { "200": { "description": "token and user (json mode)" }, "302": { "description": "redirect with token or error code (redirect mode)" }, "401": { "description": "provider denied the handshake" }, "403": { "description": "email conflict or missing email" }, "500": { "description": "handshake or store failure" } } }
    },
    "/auth/verify-token/{token}": {
      "get": {
        "summary": "Verify a previously issued bearer credential",
        "parameters": [ {"name":"token","in":"path","required":true,"schema":{"type":"string"}} ],
        "responses": { "200": { "description": "token is valid, claims returned" }, "401": { "description": "invalid or expired token" } }
      }
    },
    "/api/v1/me": {
      "get": { "summary": "Claims of the presented bearer credential", "responses": { "200": { "description": "claims" }, "401": { "description": "missing or invalid credential" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
