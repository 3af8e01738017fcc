// Package dynaskema provides:
//
// - Runtime models built from JSON Schema documents (see builder/ and dsl/)
// - Ordered Records with typed access, presence tracking and preserving encode
// - A stable error model via Issues (JSON Pointer, code, message)
// - JSON entry points with duplicate-key/depth enforcement
//
// Design policy:
// - Keep only public types in the root package; put detailed implementations under internal/.
// - Place schema documents under jsonschema/, the model builder under builder/, the runtime
//   DSL under dsl/ and the CLI under cmd/dynaskema.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	m, err := builder.MakeFromBytes(schemaJSON, builder.Options{})
//	rec, err := dynaskema.ParseJSON[*dynaskema.Record](ctx, m, data)
//	name, _ := rec.String("name")
//	wire, err := m.Encode(ctx, rec, dynaskema.EncodePreserve)
package dynaskema
