package tabletsnap

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName follows the teacher's convention of naming a package-level
// tracer after the importable module path, rather than a free-form string.
const tracerName = "github.com/polarsignals/tabletsnap"

func tracer() trace.Tracer { return otel.Tracer(tracerName) }

func tabletAttrs(tabletId int64, schemaHash uint32) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("tablet_id", tabletId),
		attribute.Int64("schema_hash", int64(schemaHash)),
	}
}
