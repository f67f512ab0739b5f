package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "WoCo Catalog API",
        "description": "Postmark and postal cover catalog with temporal geography",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Sessions and credentials"},
        {"name": "Users", "description": "User administration"},
        {"name": "Locations", "description": "Geographic locations"},
        {"name": "Administrative Units", "description": "Temporal unit hierarchy"},
        {"name": "Affiliations", "description": "Location-to-unit affiliation intervals"},
        {"name": "References", "description": "Postmark attribute lookups"},
        {"name": "Colors", "description": "Ink color catalog"},
        {"name": "Postmarks", "description": "Postmark catalog and child facts"},
        {"name": "Publications", "description": "Philatelic literature"},
        {"name": "Images", "description": "Image upload and moderation"},
        {"name": "Postcovers", "description": "Collector-owned postal covers"},
        {"name": "Exports", "description": "CSV and PDF extracts"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login with email and password",
                "responses": {
                    "200": {"description": "Tokens", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for a new access token",
                "responses": {
                    "200": {"description": "Tokens", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/locations": {
            "get": {
                "tags": ["Locations"],
                "summary": "List geographic locations",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"},
                    {"name": "has_coordinates", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Locations", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Locations"],
                "summary": "Create location",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/locations/{id}/current-affiliation": {
            "get": {
                "tags": ["Locations"],
                "summary": "Resolve the affiliation effective at a point in time",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "as_of", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Affiliation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No affiliation in effect"}
                }
            }
        },
        "/locations/{id}/timeline": {
            "get": {
                "tags": ["Locations"],
                "summary": "Full affiliation history ordered by effective date",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Timeline", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin-units": {
            "get": {
                "tags": ["Administrative Units"],
                "summary": "List administrative units",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "unit_type", "in": "query", "type": "string"},
                    {"name": "parent_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Units", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Administrative Units"],
                "summary": "Create unit beneath an optional parent",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Hierarchy cycle"}
                }
            }
        },
        "/affiliations": {
            "post": {
                "tags": ["Affiliations"],
                "summary": "Open or record an affiliation interval",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Location already has an open affiliation"}
                }
            }
        },
        "/affiliations/{id}/close": {
            "post": {
                "tags": ["Affiliations"],
                "summary": "Close an open affiliation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already closed"}
                }
            }
        },
        "/postmarks": {
            "get": {
                "tags": ["Postmarks"],
                "summary": "List postmarks with catalog filters",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"},
                    {"name": "color", "in": "query", "type": "string"},
                    {"name": "has_images", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Postmarks", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Postmarks"],
                "summary": "Create postmark with nested child facts",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate postmark key"}
                }
            }
        },
        "/postmarks/{id}/images": {
            "post": {
                "tags": ["Images"],
                "summary": "Upload a postmark image",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Uploaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/postmark-images/pending": {
            "get": {
                "tags": ["Images"],
                "summary": "Moderation queue, oldest first",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Pending images", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/postcovers/my-collection": {
            "get": {
                "tags": ["Postcovers"],
                "summary": "The calling collector's covers",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Postcovers", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/postmarks.csv": {
            "post": {
                "tags": ["Exports"],
                "summary": "Render the filtered catalog as CSV",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Export descriptor with signed URL", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered export via signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
