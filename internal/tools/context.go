package tools

import "context"

// Metadata identifies who a tool call runs on behalf of. Handlers and the
// usage sink read it from the call context.
type Metadata struct {
	UserID    string
	SessionID string
	AgentName string
}

type metadataKey struct{}

// WithMetadata attaches call metadata to the context.
func WithMetadata(ctx context.Context, meta Metadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, meta)
}

// MetadataFromContext extracts call metadata if present.
func MetadataFromContext(ctx context.Context) (Metadata, bool) {
	meta, ok := ctx.Value(metadataKey{}).(Metadata)
	return meta, ok
}
