// Package api embeds the OpenAPI document served under the swagger path.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
