// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler annotations.
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
        "/groups": {
            "get": {
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "List groups",
                "parameters": [
                    {"type": "string", "default": "open", "description": "open, closed, cancelled, finalized or all", "name": "status", "in": "query"},
                    {"type": "string", "description": "Search destination or driver name", "name": "q", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "name": "per_page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Create a ride group",
                "parameters": [
                    {"description": "Group creation request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/group.CreateGroupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "VALIDATION_FAILED, NO_VEHICLE or ALREADY_IN_ACTIVE_GROUP", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "403": {"description": "FORBIDDEN", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "409": {"description": "TRIP_ALREADY_GROUPED", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Get group by ID",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}/join": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Join a group",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/group.JoinRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "CAPACITY_EXCEEDED, GROUP_NOT_OPEN, SELF_JOIN or ALREADY_IN_ACTIVE_GROUP", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "409": {"description": "ALREADY_MEMBER", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "503": {"description": "BUSY", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}/leave": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Leave a group",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/group.LeaveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "DRIVER_CANNOT_LEAVE", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "NOT_A_MEMBER or GROUP_NOT_FOUND", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}/close": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Change group status",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/group.CloseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "INVALID_TRANSITION for a known status the group cannot move to, VALIDATION_FAILED for a status outside open, closed, cancelled, finalized", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "403": {"description": "NOT_AUTHORIZED", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}/ratings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ratings"],
                "summary": "List ratings of a group's driver",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ratings"],
                "summary": "Rate a group's driver",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/rating.RateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "INVALID_SCORE, NOT_ELIGIBLE or SELF_RATING", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/groups/{id}/rating-summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ratings"],
                "summary": "Rating summary of a group's driver",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/drivers/{id}/ratings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ratings"],
                "summary": "List a driver's ratings",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/drivers/{id}/rating-summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ratings"],
                "summary": "Rating summary of a driver",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "group.CreateGroupRequest": {
            "type": "object",
            "required": ["driver_id", "destination_name", "total_seats"],
            "properties": {
                "driver_id": {"type": "integer"},
                "destination_name": {"type": "string", "maxLength": 255},
                "destination_lat": {"type": "number"},
                "destination_lon": {"type": "number"},
                "total_seats": {"type": "integer", "minimum": 1},
                "price": {"type": "number", "minimum": 0},
                "departure_at": {"type": "string", "format": "date-time"},
                "notes": {"type": "string", "maxLength": 1000},
                "trip_id": {"type": "integer"}
            }
        },
        "group.JoinRequest": {
            "type": "object",
            "required": ["user_id"],
            "properties": {
                "user_id": {"type": "integer"},
                "agreed_amount": {"type": "number", "minimum": 0}
            }
        },
        "group.LeaveRequest": {
            "type": "object",
            "required": ["user_id"],
            "properties": {"user_id": {"type": "integer"}}
        },
        "group.CloseRequest": {
            "type": "object",
            "required": ["actor_id"],
            "properties": {
                "actor_id": {"type": "integer"},
                "status": {"type": "string", "enum": ["closed", "cancelled", "finalized"]}
            }
        },
        "rating.RateRequest": {
            "type": "object",
            "required": ["passenger_id", "score"],
            "properties": {
                "passenger_id": {"type": "integer"},
                "score": {"type": "integer", "minimum": 1, "maximum": 5},
                "comment": {"type": "string", "maxLength": 1000}
            }
        },
        "response.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/response.ErrorDetail"}}
            }
        },
        "response.ErrorDetail": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "response.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"$ref": "#/definitions/response.APIError"},
                "meta": {"$ref": "#/definitions/response.Meta"}
            }
        },
        "response.Meta": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Group Rides API",
	Description:      "Shared-ride groups with seat capacity, membership and driver ratings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
