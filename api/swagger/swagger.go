package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "JECRC No Dues API",
        "description": "Multi-department no-dues clearance workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Clearance", "description": "Student application lifecycle"},
        {"name": "Staff", "description": "Department and admin dashboard"},
        {"name": "Certificates", "description": "Certificate download and verification"},
        {"name": "Departments", "description": "Clearing department registry"},
        {"name": "Authentication", "description": "Staff login and sessions"},
        {"name": "Audit", "description": "Immutable audit trail"}
    ],
    "paths": {
        "/applications": {
            "post": {
                "tags": ["Clearance"],
                "summary": "Submit a no-dues application",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitApplicationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate registration number"}
                }
            }
        },
        "/applications/{registrationNo}/status": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Check clearance status",
                "parameters": [
                    {"name": "registrationNo", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No application found"}
                }
            }
        },
        "/applications/reapply": {
            "post": {
                "tags": ["Clearance"],
                "summary": "Resubmit a rejected application",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReapplyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Reapplication limit reached"}
                }
            }
        },
        "/certificates/verify": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Verify a certificate by transaction id or hash",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyCertificateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates/download": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Download a certificate via signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF stream"},
                    "400": {"description": "Missing or invalid token"}
                }
            }
        },
        "/departments": {
            "get": {
                "tags": ["Departments"],
                "summary": "List departments",
                "parameters": [
                    {"name": "all", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff user",
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
        "/staff/applications": {
            "get": {
                "tags": ["Staff"],
                "summary": "List applications for the dashboard",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "deptState", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staff/applications/{id}/action": {
            "post": {
                "tags": ["Staff"],
                "summary": "Approve or reject an application for a department",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DepartmentActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/staff/applications/bulk-approve": {
            "post": {
                "tags": ["Staff"],
                "summary": "Approve a batch of applications for one department",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/departments/{name}/remind": {
            "post": {
                "tags": ["Admin"],
                "summary": "Queue reminder notifications for a department queue",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/applications/{id}/certificate/regenerate": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Regenerate a certificate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/certificates/backfill": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Generate missing certificates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit log entries",
                "parameters": [
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "userId", "in": "query", "type": "string"},
                    {"name": "entityId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitApplicationRequest": {
            "type": "object",
            "properties": {
                "registration_no": {"type": "string"},
                "student_name": {"type": "string"},
                "parent_name": {"type": "string"},
                "school": {"type": "string"},
                "course": {"type": "string"},
                "branch": {"type": "string"},
                "admission_year": {"type": "string"},
                "passing_year": {"type": "string"},
                "contact_no": {"type": "string"},
                "personal_email": {"type": "string"},
                "college_email": {"type": "string"}
            },
            "required": ["registration_no", "student_name", "parent_name", "school", "course", "branch", "admission_year", "passing_year", "contact_no"]
        },
        "ReapplyRequest": {
            "type": "object",
            "properties": {
                "registration_no": {"type": "string"},
                "contact_no": {"type": "string"},
                "student_message": {"type": "string"},
                "edited_fields": {"type": "object"}
            },
            "required": ["registration_no", "contact_no"]
        },
        "DepartmentActionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject"]},
                "comment": {"type": "string"}
            },
            "required": ["action"]
        },
        "BulkActionRequest": {
            "type": "object",
            "properties": {
                "application_ids": {"type": "array", "items": {"type": "string"}},
                "comment": {"type": "string"}
            },
            "required": ["application_ids"]
        },
        "VerifyCertificateRequest": {
            "type": "object",
            "properties": {
                "transaction_id": {"type": "string"},
                "hash": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
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
