package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Internship Affectation API",
        "description": "Assigns internship students to hospitals across the twelve periods of the year",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Affectations", "description": "Engine runs, persisted solution, statistics and exports"},
        {"name": "Operations", "description": "Liveness, readiness and metrics"}
    ],
    "paths": {
        "/affectations": {
            "get": {
                "tags": ["Affectations"],
                "summary": "List persisted assignments per student",
                "parameters": [
                    {"name": "sort", "in": "query", "type": "string", "enum": ["name", "score"]},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "organizationId", "in": "query", "type": "string"},
                    {"name": "specialityId", "in": "query", "type": "string"},
                    {"name": "choice", "in": "query", "type": "string", "enum": ["1", "2", "3", "4", "I", "X", "E"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/affectations/generate": {
            "post": {
                "tags": ["Affectations"],
                "summary": "Run the engine and persist the best solution",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/GenerateAffectationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Run summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid parameters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Inconsistent internship data", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/affectations/jobs": {
            "post": {
                "tags": ["Affectations"],
                "summary": "Queue an engine run",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/GenerateAffectationRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/affectations/jobs/{id}": {
            "get": {
                "tags": ["Affectations"],
                "summary": "State of a queued run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/affectations/statistics": {
            "get": {
                "tags": ["Affectations"],
                "summary": "Statistics and occupancy of the persisted solution",
                "parameters": [
                    {"name": "sortOrganization", "in": "query", "type": "string", "enum": ["ref", "speciality"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No persisted solution", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/affectations/exports": {
            "post": {
                "tags": ["Affectations"],
                "summary": "Render the assignment sheet",
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "201": {"description": "Stored export with signed link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/affectations/exports/{token}": {
            "get": {
                "tags": ["Affectations"],
                "summary": "Download an export",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Unknown export", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateAffectationRequest": {
            "type": "object",
            "properties": {
                "executions": {"type": "integer", "minimum": 1},
                "seed": {"type": "integer"},
                "workers": {"type": "integer", "minimum": 1, "maximum": 64}
            }
        },
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
