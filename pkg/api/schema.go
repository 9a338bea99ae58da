package api

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/audit_request.schema.json
var auditRequestSchema []byte

const auditRequestSchemaURL = "https://schemas.dil.local/audit_request.schema.json"

// compileAuditSchema compiles the request body schema.
func compileAuditSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(auditRequestSchemaURL, bytes.NewReader(auditRequestSchema)); err != nil {
		return nil, fmt.Errorf("audit schema load failed: %w", err)
	}
	return c.Compile(auditRequestSchemaURL)
}

// schemaMessage flattens a validation error to its most specific causes.
func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
