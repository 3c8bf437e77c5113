package types

// ParamType is the wire type a bound parameter is sent as.
type ParamType string

// Wire types understood by the backend.
const (
	ParamInteger ParamType = "integer"
	ParamFloat   ParamType = "float"
	ParamText    ParamType = "text"
	ParamNull    ParamType = "null"
	ParamBlob    ParamType = "blob"
)

// Typed forces a parameter to bind as Type regardless of the Go type of Value.
type Typed struct {
	Type  ParamType
	Value any
}

// Blob marks a byte payload to bind as a blob.
type Blob []byte

// BoundParam is a value paired with its inferred wire type.
type BoundParam struct {
	Value any
	Type  ParamType
}
