// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/projects": {
            "post": {"tags": ["projects"], "summary": "Create a redevelopment project", "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}}
        },
        "/projects/{project_id}": {
            "get": {"tags": ["projects"], "summary": "Get a project", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "delete": {"tags": ["projects"], "summary": "Delete a project with its proposals and ballots", "responses": {"204": {"description": "Deleted"}}}
        },
        "/projects/{project_id}/tender": {
            "post": {"tags": ["projects"], "summary": "Open the tender", "responses": {"200": {"description": "OK"}, "409": {"description": "State conflict"}}}
        },
        "/projects/{project_id}/voting": {
            "post": {"tags": ["projects"], "summary": "Open voting with a deadline", "responses": {"200": {"description": "OK"}, "409": {"description": "State conflict"}}}
        },
        "/projects/{project_id}/advance": {
            "post": {"tags": ["projects"], "summary": "Advance to construction or completed", "responses": {"200": {"description": "OK"}, "409": {"description": "State conflict"}}}
        },
        "/projects/{project_id}/cancel": {
            "post": {"tags": ["projects"], "summary": "Cancel a non-terminal project", "responses": {"200": {"description": "OK"}, "409": {"description": "State conflict"}}}
        },
        "/projects/{project_id}/proposals": {
            "post": {"tags": ["proposals"], "summary": "Submit a developer proposal", "responses": {"201": {"description": "Created"}, "400": {"description": "Not accepting proposals"}, "409": {"description": "Duplicate proposal"}}},
            "get": {"tags": ["proposals"], "summary": "List proposals visible to the caller", "responses": {"200": {"description": "OK"}}}
        },
        "/proposals/{proposal_id}": {
            "get": {"tags": ["proposals"], "summary": "Get a proposal", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "patch": {"tags": ["proposals"], "summary": "Edit a draft or submitted proposal", "responses": {"200": {"description": "OK"}}}
        },
        "/proposals/{proposal_id}/select": {
            "post": {"tags": ["proposals"], "summary": "Select the winning proposal", "responses": {"200": {"description": "OK"}, "409": {"description": "Already selected or wrong state"}}}
        },
        "/votes": {
            "post": {"tags": ["votes"], "summary": "Cast one ballot", "responses": {"201": {"description": "Recorded"}, "403": {"description": "Not eligible"}, "409": {"description": "Already voted"}}}
        },
        "/votes/batch": {
            "post": {"tags": ["votes"], "summary": "Cast up to 100 ballots with partial success", "responses": {"201": {"description": "Recorded"}, "409": {"description": "Every ballot was a duplicate"}}}
        },
        "/votes/{ballot_id}/verify": {
            "post": {"tags": ["votes"], "summary": "Verify a ballot", "responses": {"200": {"description": "OK"}}}
        },
        "/projects/{project_id}/votes/statistics": {
            "get": {"tags": ["votes"], "summary": "Aggregate vote statistics", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/societies/{society_id}/members": {
            "post": {"tags": ["membership"], "summary": "Enrol a society member", "responses": {"201": {"description": "Created"}}},
            "get": {"tags": ["membership"], "summary": "List active members", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SocietyHub Governance API",
	Description:      "Redevelopment projects, developer proposals, member voting and selection.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
