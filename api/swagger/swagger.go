package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Smart Student Hub API",
        "description": "Achievement tracking and verified portfolio backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh, logout"},
        {"name": "Achievements", "description": "Submission and review lifecycle"},
        {"name": "Events", "description": "Events, role capacities and participations"},
        {"name": "Faculty", "description": "Mentor-mentee management"},
        {"name": "Badges", "description": "Badge definitions and earned badges"},
        {"name": "Students", "description": "Profiles and portfolio export"},
        {"name": "Categories", "description": "Achievement category reference data"},
        {"name": "Analytics", "description": "Institution dashboards"},
        {"name": "Notifications", "description": "User notification feed"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/achievements": {
            "get": {
                "tags": ["Achievements"],
                "summary": "List achievements",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "categoryId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Achievements"],
                "summary": "Submit achievement",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAchievementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/achievements/{id}": {
            "get": {
                "tags": ["Achievements"],
                "summary": "Get achievement detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Achievements"],
                "summary": "Approve or reject a pending achievement",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideAchievementRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No longer pending"},
                    "422": {"description": "Credit limit exceeded"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Events"],
                "summary": "Create event",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/participations": {
            "post": {
                "tags": ["Events"],
                "summary": "Register for event role",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Registered"},
                    "409": {"description": "Role full or duplicate registration"},
                    "422": {"description": "Deadline passed"}
                }
            }
        },
        "/faculty/{id}/mentees": {
            "post": {
                "tags": ["Faculty"],
                "summary": "Assign mentee",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Mentor at capacity"}
                }
            },
            "get": {
                "tags": ["Faculty"],
                "summary": "List mentees",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/students/{id}/portfolio/export": {
            "get": {
                "tags": ["Students"],
                "summary": "Export verified portfolio",
                "produces": ["application/pdf", "text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "csv"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/analytics/institution": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Institution analytics",
                "parameters": [
                    {"name": "institutionId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "SubmitAchievementRequest": {
            "type": "object",
            "properties": {
                "category_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date_achieved": {"type": "string", "format": "date-time"},
                "evidence_urls": {"type": "array", "items": {"type": "string"}},
                "skill_tags": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["category_id", "title", "date_achieved"]
        },
        "DecideAchievementRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "credits": {"type": "number"},
                "rejection_reason": {"type": "string"}
            },
            "required": ["status"]
        },
        "RegisterEventRequest": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["ORGANIZER", "VOLUNTEER", "PARTICIPANT"]}
            },
            "required": ["role"]
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
