package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Tracker API",
        "description": "Term timetables, generated class sessions and attendance statistics",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Collections", "description": "Term timetables"},
        {"name": "Courses", "description": "Courses and weekly slots"},
        {"name": "Sessions", "description": "Dated class meetings"},
        {"name": "Attendance", "description": "Statistics and exports"}
    ],
    "parameters": {
        "UserID": {"name": "X-User-ID", "in": "header", "type": "string", "required": true, "description": "Caller identity"},
        "ID": {"name": "id", "in": "path", "type": "string", "required": true}
    },
    "paths": {
        "/collections": {
            "get": {
                "tags": ["Collections"],
                "summary": "List own collections",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing identity", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Collections"],
                "summary": "Create collection",
                "description": "Sessions are generated in the background for every working day in the range.",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CollectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/shared": {
            "get": {
                "tags": ["Collections"],
                "summary": "List shared collections",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}": {
            "get": {
                "tags": ["Collections"],
                "summary": "Get collection",
                "parameters": [{"$ref": "#/parameters/UserID"}, {"$ref": "#/parameters/ID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Collections"],
                "summary": "Replace collection",
                "description": "Rebuilds courses, schedules and sessions. Attendance history is discarded.",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CollectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Collections"],
                "summary": "Delete collection",
                "parameters": [{"$ref": "#/parameters/UserID"}, {"$ref": "#/parameters/ID"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/settings": {
            "patch": {
                "tags": ["Collections"],
                "summary": "Update collection settings",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CollectionSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/clone": {
            "post": {
                "tags": ["Collections"],
                "summary": "Clone shared collection",
                "parameters": [{"$ref": "#/parameters/UserID"}, {"$ref": "#/parameters/ID"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Collection not shared", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/timetable": {
            "get": {
                "tags": ["Collections"],
                "summary": "Weekly timetable grid",
                "parameters": [{"$ref": "#/parameters/UserID"}, {"$ref": "#/parameters/ID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/stats": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance statistics",
                "parameters": [{"$ref": "#/parameters/UserID"}, {"$ref": "#/parameters/ID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/day": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Sessions on a date",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/ID"},
                    {"name": "date", "in": "query", "type": "string", "format": "date", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Export statistics",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/ID"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "503": {"description": "Exports disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/courses": {
            "post": {
                "tags": ["Courses"],
                "summary": "Add course",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/schedules": {
            "post": {
                "tags": ["Courses"],
                "summary": "Add weekly slot to course",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List course sessions",
                "parameters": [{"$ref": "#/parameters/UserID"}, {"$ref": "#/parameters/ID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Add session manually",
                "description": "201 when created, 200 when a session already existed for the date.",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Existing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Update session status",
                "parameters": [
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CollectionRequest": {
            "type": "object",
            "required": ["name", "start_date", "end_date", "timetable"],
            "properties": {
                "name": {"type": "string"},
                "shared": {"type": "boolean"},
                "threshold": {"type": "integer", "minimum": 0, "maximum": 100},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "timetable": {"type": "array", "items": {"type": "array", "items": {"type": "string"}}}
            }
        },
        "CollectionSettingsRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "shared": {"type": "boolean"},
                "threshold": {"type": "integer", "minimum": 0, "maximum": 100},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"}
            }
        },
        "AddCourseRequest": {
            "type": "object",
            "required": ["name", "day_of_week", "order"],
            "properties": {
                "name": {"type": "string"},
                "day_of_week": {"type": "integer", "minimum": 1, "maximum": 5},
                "order": {"type": "integer", "minimum": 1}
            }
        },
        "ScheduleRequest": {
            "type": "object",
            "required": ["day_of_week", "order"],
            "properties": {
                "day_of_week": {"type": "integer", "minimum": 1, "maximum": 5},
                "order": {"type": "integer", "minimum": 1}
            }
        },
        "CreateSessionRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "status": {"type": "string", "enum": ["present", "bunked", "cancelled"]}
            }
        },
        "UpdateSessionRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["present", "bunked", "cancelled"]}
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
