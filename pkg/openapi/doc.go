// Package openapi imports form descriptors from OpenAPI 3 documents. A
// component schema, or the request body of an operation, becomes an ordered
// descriptor set built through the builder package.
package openapi
