// Package docs is generated by swag from the httpserver annotations.
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
        "/api/v1/polls": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "Create a poll",
                "parameters": [
                    {"type": "string", "description": "Poll owner", "name": "X-User-Id", "in": "header", "required": true},
                    {"description": "Poll", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/pollhttp.CreatePollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/pollhttp.PollResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/polls/{poll_id}/results": {
            "get": {
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "Per-option vote percentages",
                "parameters": [
                    {"type": "string", "description": "Poll id", "name": "poll_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pollhttp.PollResultsResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/polls/{poll_id}/votes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "Cast or change the caller's vote",
                "parameters": [
                    {"type": "string", "description": "Voter", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Poll id", "name": "poll_id", "in": "path", "required": true},
                    {"description": "Selected option (1-4)", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/pollhttp.SubmitVoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pollhttp.SubmitVoteResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/rankings/{ranking_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rankings"],
                "summary": "Ranking with items in position order",
                "parameters": [
                    {"type": "string", "description": "Ranking id", "name": "ranking_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rankinghttp.RankingResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/rankings/{ranking_id}/recalculate": {
            "post": {
                "produces": ["application/json"],
                "tags": ["rankings"],
                "summary": "Recalculate item positions from scores",
                "parameters": [
                    {"type": "string", "description": "Ranking id", "name": "ranking_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rankinghttp.RecalculateResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "pollhttp.CreatePollRequest": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "active": {"type": "boolean"}
            }
        },
        "pollhttp.PollOption": {
            "type": "object",
            "properties": {
                "option": {"type": "integer"},
                "text": {"type": "string"},
                "votes": {"type": "integer"}
            }
        },
        "pollhttp.PollResponse": {
            "type": "object",
            "properties": {
                "poll_id": {"type": "string"},
                "owner_id": {"type": "string"},
                "question": {"type": "string"},
                "options": {"type": "array", "items": {"$ref": "#/definitions/pollhttp.PollOption"}},
                "total_votes": {"type": "integer"},
                "active": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "pollhttp.OptionPercentage": {
            "type": "object",
            "properties": {
                "option": {"type": "integer"},
                "text": {"type": "string"},
                "votes": {"type": "integer"},
                "percentage": {"type": "integer"}
            }
        },
        "pollhttp.PollResultsResponse": {
            "type": "object",
            "properties": {
                "poll_id": {"type": "string"},
                "question": {"type": "string"},
                "active": {"type": "boolean"},
                "total_votes": {"type": "integer"},
                "options": {"type": "array", "items": {"$ref": "#/definitions/pollhttp.OptionPercentage"}}
            }
        },
        "pollhttp.SubmitVoteRequest": {
            "type": "object",
            "properties": {
                "option": {"type": "integer"}
            }
        },
        "pollhttp.VoteResponse": {
            "type": "object",
            "properties": {
                "poll_id": {"type": "string"},
                "user_id": {"type": "string"},
                "selected_option": {"type": "integer"},
                "voted_at": {"type": "string"}
            }
        },
        "pollhttp.SubmitVoteResponse": {
            "type": "object",
            "properties": {
                "vote": {"$ref": "#/definitions/pollhttp.VoteResponse"},
                "outcome": {"type": "string"},
                "poll": {"$ref": "#/definitions/pollhttp.PollResponse"}
            }
        },
        "rankinghttp.RankingItemResponse": {
            "type": "object",
            "properties": {
                "item_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "score": {"type": "number"},
                "position": {"type": "integer"}
            }
        },
        "rankinghttp.RankingResponse": {
            "type": "object",
            "properties": {
                "ranking_id": {"type": "string"},
                "title": {"type": "string"},
                "type": {"type": "string"},
                "created_at": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/rankinghttp.RankingItemResponse"}}
            }
        },
        "rankinghttp.RecalculateResponse": {
            "type": "object",
            "properties": {
                "ranking_id": {"type": "string"},
                "item_count": {"type": "integer"},
                "changed_count": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Cinetrack Community API",
	Description:      "Poll voting and ranking endpoints.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
