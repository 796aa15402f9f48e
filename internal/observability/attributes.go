package observability

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrKind    = "kind" // statement kind: query or exec
	attrSuccess = "success"
)

func kindAttr(kind string) attribute.KeyValue {
	return attribute.String(attrKind, kind)
}

func successAttr(success bool) attribute.KeyValue {
	return attribute.Bool(attrSuccess, success)
}
