package swagger

import (
	"strings"
	"sync"

	"github.com/swaggo/swag"
)

const basePathToken = "{{BASE_PATH}}"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Department Slot API",
        "description": "Teacher slot allocation for university departments",
        "version": "1.0.0"
    },
    "basePath": "{{BASE_PATH}}",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Slots", "description": "Slot catalogue and teacher placements"},
        {"name": "Roster", "description": "Teachers and departments"},
        {"name": "Observability", "description": "Metrics snapshots"}
    ],
    "paths": {
        "/slots/": {
            "get": {
                "tags": ["Slots"],
                "summary": "List slots",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/slots/initialize-default-slots/": {
            "post": {
                "tags": ["Slots"],
                "summary": "Create slots A, B and C when missing",
                "responses": {
                    "200": {"description": "Already initialized", "schema": {"$ref": "#/definitions/Envelope"}},
                    "201": {"description": "Slots created", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/slots/teacher-slots/": {
            "get": {
                "tags": ["Slots"],
                "summary": "List teacher slot assignments",
                "parameters": [
                    {"name": "day_of_week", "in": "query", "type": "string", "description": "0-5 or a day name"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "dept_id", "in": "query", "type": "string"},
                    {"name": "slot_type", "in": "query", "type": "string", "enum": ["A", "B", "C"]},
                    {"name": "include_stats", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/slots/teacher-slot-preference/": {
            "post": {
                "tags": ["Slots"],
                "summary": "Apply slot operations for one teacher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TeacherSlotPreferenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Batch result", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Teacher not found", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Every operation was rejected", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/slots/batch-assignments/": {
            "post": {
                "tags": ["Slots"],
                "summary": "Apply slot operations across teachers",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchAssignmentsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Batch result", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Every operation was rejected", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/slots/department-summary/": {
            "get": {
                "tags": ["Slots"],
                "summary": "Slot coverage and compliance for a department",
                "parameters": [
                    {"name": "dept_id", "in": "query", "type": "string", "description": "All departments when empty"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Department not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/slots/department-summary/export": {
            "get": {
                "tags": ["Slots"],
                "summary": "Download a department summary",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "dept_id", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/teachers/": {
            "get": {
                "tags": ["Roster"],
                "summary": "List teachers",
                "parameters": [
                    {"name": "dept_id", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/teachers/{id}": {
            "get": {
                "tags": ["Roster"],
                "summary": "Get teacher detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/departments/": {
            "get": {
                "tags": ["Roster"],
                "summary": "List departments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Aggregated request, cache and rule metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "SlotOperation": {
            "type": "object",
            "required": ["action", "slot_id", "day_of_week"],
            "properties": {
                "action": {"type": "string", "enum": ["create", "update", "delete"]},
                "slot_id": {"type": "string"},
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 5}
            }
        },
        "TeacherSlotPreferenceRequest": {
            "type": "object",
            "required": ["teacher_id", "operations"],
            "properties": {
                "teacher_id": {"type": "string"},
                "operations": {"type": "array", "items": {"$ref": "#/definitions/SlotOperation"}}
            }
        },
        "BatchAssignment": {
            "type": "object",
            "required": ["teacher_id", "slot_id", "day_of_week", "action"],
            "properties": {
                "teacher_id": {"type": "string"},
                "slot_id": {"type": "string"},
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 5},
                "action": {"type": "string", "enum": ["create", "update", "delete"]}
            }
        },
        "BatchAssignmentsRequest": {
            "type": "object",
            "required": ["assignments"],
            "properties": {
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/BatchAssignment"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
        "Envelope": {
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

type swaggerDoc struct {
	mu       sync.RWMutex
	basePath string
}

var doc = &swaggerDoc{basePath: "/api"}

// SetBasePath points the document at the prefix the API is mounted under.
func SetBasePath(prefix string) {
	if prefix == "" {
		prefix = "/"
	}
	doc.mu.Lock()
	doc.basePath = prefix
	doc.mu.Unlock()
}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.Replace(docTemplate, basePathToken, s.basePath, 1)
}

func init() {
	swag.Register(swag.Name, doc)
}
