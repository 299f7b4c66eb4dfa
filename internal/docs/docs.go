// Package docs registers the Swagger document served at /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health check endpoint",
                "responses": {
                    "200": {"description": "Service is healthy", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "503": {"description": "A dependency is unhealthy", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/badges": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Badges"],
                "summary": "List badge tiers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Badges"],
                "summary": "Create a badge tier",
                "parameters": [
                    {"description": "Tier definition", "name": "tier", "in": "body", "required": true, "schema": {"$ref": "#/definitions/docs.CreateTierRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "400": {"description": "Invalid tier", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "403": {"description": "Administrator role required", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "409": {"description": "Duplicate threshold or name", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/me/badges": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Badges"],
                "summary": "Get the caller's badges",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/me/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Realtime"],
                "summary": "List the caller's gamification notifications",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Maximum notifications (1-100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/leaderboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Leaderboard"],
                "summary": "Rank members by points",
                "parameters": [
                    {"enum": ["GLOBAL", "ORGANIZATION", "UNIVERSITY"], "type": "string", "description": "GLOBAL or ORGANIZATION", "name": "scope", "in": "query"},
                    {"type": "integer", "description": "Organization id, required for ORGANIZATION", "name": "org_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "400": {"description": "Unknown scope or missing organization", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/top-members": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Leaderboard"],
                "summary": "Top ranked members",
                "parameters": [
                    {"enum": ["GLOBAL", "ORGANIZATION", "UNIVERSITY"], "type": "string", "description": "GLOBAL or ORGANIZATION", "name": "scope", "in": "query"},
                    {"type": "integer", "description": "Organization id, required for ORGANIZATION", "name": "org_id", "in": "query"},
                    {"type": "integer", "default": 10, "description": "Number of members (0-100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/users/{id}/balance": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Points"],
                "summary": "Get a user's points balance",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/users/{id}/achievements": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Badges"],
                "summary": "List a user's earned badges",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/users/{id}/points": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Points"],
                "summary": "Page through a user's points ledger",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Page size", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.PaginatedResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/users/{id}/dashboard-update": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Realtime"],
                "summary": "Push a dashboard refresh to the user's live clients",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/points/award": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Points"],
                "summary": "Award points to a user",
                "parameters": [
                    {"description": "Award", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/docs.PointsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "409": {"description": "Write conflict, retry", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/api/v1/gamification/points/deduct": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Points"],
                "summary": "Deduct points from a user",
                "parameters": [
                    {"description": "Deduction", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/docs.PointsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "409": {"description": "Write conflict, retry", "schema": {"$ref": "#/definitions/docs.APIResponse"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/docs.APIResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["Realtime"],
                "summary": "Websocket for live gamification updates",
                "parameters": [
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "Topics to subscribe to", "name": "topic", "in": "query", "required": true},
                    {"type": "string", "description": "Bearer token for browsers", "name": "access_token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "400": {"description": "No topic", "schema": {"type": "string"}},
                    "403": {"description": "Topic belongs to another user", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "docs.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "data": {},
                "error": {"$ref": "#/definitions/docs.ErrorBody"},
                "request_id": {"type": "string"},
                "timestamp": {"type": "integer"},
                "version": {"type": "string", "example": "v1"}
            }
        },
        "docs.PaginatedResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "data": {},
                "error": {"$ref": "#/definitions/docs.ErrorBody"},
                "meta": {
                    "type": "object",
                    "properties": {
                        "pagination": {"$ref": "#/definitions/docs.PaginationMeta"}
                    }
                },
                "request_id": {"type": "string"},
                "timestamp": {"type": "integer"},
                "version": {"type": "string"}
            }
        },
        "docs.PaginationMeta": {
            "type": "object",
            "properties": {
                "page": {"type": "integer", "example": 1},
                "page_size": {"type": "integer", "example": 20},
                "total": {"type": "integer", "example": 95},
                "total_pages": {"type": "integer", "example": 5},
                "has_next": {"type": "boolean", "example": true},
                "has_prev": {"type": "boolean", "example": false}
            }
        },
        "docs.ErrorBody": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "example": "VALIDATION_ERROR"},
                "message": {"type": "string"},
                "code": {"type": "string", "example": "DUPLICATE_THRESHOLD"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/docs.FieldError"}}
            }
        },
        "docs.FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string", "example": "amount"},
                "rule": {"type": "string", "example": "gt"}
            }
        },
        "docs.PointsRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "integer", "example": 42},
                "amount": {"type": "integer", "example": 10, "minimum": 1, "maximum": 1000000},
                "source_type": {"type": "string", "enum": ["EVENT", "BLOG", "EVENT_LEAVE", "REPORT_RESOLVED", "REPORT_DISMISSED", "OTHER"]},
                "source_id": {"type": "integer", "example": 7},
                "description": {"type": "string"},
                "notify_dashboard": {"type": "boolean"}
            }
        },
        "docs.CreateTierRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Scholar"},
                "description": {"type": "string"},
                "points_threshold": {"type": "integer", "example": 200}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "UniHub Gamification API",
	Description:      "Points, badge tiers, leaderboards and realtime notifications for the UniHub platform.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
