//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// SwaggerInfo describes the admin API. Paths come from the godoc
// annotations on the handlers in server.go.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "solverd admin API",
	Description:      "Project registry, bundle import/export and runtime status.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

const swaggerTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/projects": {"get": {"tags": ["projects"], "summary": "List projects", "responses": {"200": {"description": "OK"}}}},
        "/projects/import": {"post": {"tags": ["projects"], "summary": "Import a project bundle", "consumes": ["application/octet-stream"], "responses": {"201": {"description": "Created"}}}},
        "/projects/{name}": {
            "get": {"tags": ["projects"], "summary": "Describe a project", "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["projects"], "summary": "Unregister a project", "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/projects/{name}/export": {"get": {"tags": ["projects"], "summary": "Export a project bundle", "produces": ["application/octet-stream"], "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}, {"name": "ttl", "in": "query", "type": "string"}, {"name": "rotating", "in": "query", "type": "boolean"}], "responses": {"200": {"description": "OK"}}}},
        "/status": {"get": {"tags": ["runtime"], "summary": "Runtime status", "responses": {"200": {"description": "OK"}}}}
    }
}`

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
