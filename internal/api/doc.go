// Package api exposes the conversion coordinator over HTTP.
//
// The server translates job rows into transport-friendly DTOs and maps the
// service error taxonomy onto HTTP status codes. Raw failure causes never
// cross the wire; a failed job carries only its failure classification.
//
// # Endpoints
//
//	GET    /api/healthz              liveness plus job catalog counts
//	GET    /api/jobs                 list jobs, optional ?status= filter
//	POST   /api/jobs                 multipart upload registering a source file
//	GET    /api/jobs/{id}            describe one job
//	PATCH  /api/jobs/{id}            set target format and/or quality (pending only)
//	DELETE /api/jobs/{id}            remove now, or flag a converting job
//	POST   /api/jobs/{id}/retry      reset a failed job to pending
//	GET    /api/jobs/{id}/result     download the converted file (completed only)
//	GET    /api/batch                batch run status and last summary
//	POST   /api/batch                start a batch over the given job IDs
//
// A bearer token guards every endpoint except the health probe when
// paths.api_token is configured. DTOs use camelCase JSON tags; timestamps
// are RFC3339 with milliseconds.
package api
