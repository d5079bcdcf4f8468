// Package docs holds the OpenAPI document for the status API
package docs

import "github.com/swaggo/swag/v2"

// docTemplate follows the route annotations in the api package
const docTemplate = `{
  "openapi": "3.0.3",
  "info": {
    "title": "{{.Title}}",
    "description": "{{.Description}}",
    "version": "{{.Version}}"
  },
  "servers": [{"url": "{{.BasePath}}"}],
  "paths": {
    "/healthz": {
      "get": {
        "tags": ["Status"],
        "summary": "Liveness and build info",
        "responses": {
          "200": {"description": "OK", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}
        }
      }
    },
    "/v1/sites/": {
      "get": {
        "tags": ["Status"],
        "summary": "Status of every watched site",
        "responses": {
          "200": {"description": "OK", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}
        }
      }
    },
    "/v1/sites/{site}": {
      "get": {
        "tags": ["Status"],
        "summary": "Status of one watched site",
        "parameters": [{"$ref": "#/components/parameters/Site"}],
        "responses": {
          "200": {"description": "OK", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}},
          "404": {"description": "Not Found", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}
        }
      }
    },
    "/v1/sites/{site}/seen": {
      "get": {
        "tags": ["Seen"],
        "summary": "Seen records of one site",
        "parameters": [
          {"$ref": "#/components/parameters/Site"},
          {"name": "format", "in": "query", "schema": {"type": "string", "enum": ["json", "csv"]}}
        ],
        "responses": {
          "200": {
            "description": "OK",
            "content": {
              "application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}},
              "text/csv": {"schema": {"type": "string"}}
            }
          },
          "404": {"description": "Not Found", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}},
          "422": {"description": "Unknown format", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}
        }
      }
    }
  },
  "components": {
    "parameters": {
      "Site": {"name": "site", "in": "path", "required": true, "schema": {"type": "string", "example": "etherscan.io"}}
    },
    "schemas": {
      "Envelope": {
        "type": "object",
        "properties": {
          "status_code": {"type": "integer", "format": "int32"},
          "status": {"type": "string"},
          "code": {"type": "integer", "format": "int32"},
          "error": {"type": "string"},
          "request_id": {"type": "string"},
          "data": {}
        },
        "required": ["status_code", "status"]
      }
    }
  }
}`

// SwaggerInfo is the registered document
var SwaggerInfo = &swag.Spec{
	Version:          "v1",
	BasePath:         "/",
	Title:            "contractscout status API",
	Description:      "Read-only view of the watch loops and their seen records.",
	InfoInstanceName: "status",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
