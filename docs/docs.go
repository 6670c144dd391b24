// Package docs holds the Swagger 2.0 description of the HTTP API.
//
// swagger.json mirrors the annotations on the handlers in package api and is
// served at /docs/swagger.json for the Swagger UI mounted at /swagger/.
package docs

import _ "embed"

// SwaggerJSON is the API description served by the router.
//
//go:embed swagger.json
var SwaggerJSON []byte
