package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutor Center API",
        "description": "Tutoring-center administration backend: session-ledger reconciliation, attendance and payments consoles",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Administrator authentication"},
        {"name": "Students", "description": "Student directory"},
        {"name": "Attendance", "description": "Attendance console"},
        {"name": "Ledger", "description": "Session ledger and payments console"}
    ],
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {"200": {"description": "Student page"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/v1/students/{id}/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a presence toggle",
                "responses": {
                    "200": {"description": "Projection after the mark"},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/api/v1/students/{id}/ledger": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Ledger statement with projection and journal",
                "responses": {"200": {"description": "Statement"}}
            },
            "put": {
                "tags": ["Ledger"],
                "summary": "Override both session counters",
                "responses": {
                    "200": {"description": "Projection after the override"},
                    "400": {"description": "Negative counters rejected"}
                }
            }
        },
        "/api/v1/students/{id}/ledger/settle": {
            "post": {
                "tags": ["Ledger"],
                "summary": "Reclassify all unpaid sessions as paid",
                "responses": {"200": {"description": "Projection after settlement"}}
            }
        },
        "/api/v1/ledgers": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Projected roster with aggregate totals",
                "responses": {"200": {"description": "Roster page"}}
            }
        },
        "/api/v1/ledgers/export": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Download the roster statement (CSV/PDF)",
                "responses": {"200": {"description": "File"}}
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
