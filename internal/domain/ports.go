package domain

import "context"

// SnapshotStore persists serialized end-of-request datasets. Get has
// get-then-delete semantics: a dataset can be read once.
type SnapshotStore interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
}

// VarFormatter renders arbitrary values as plain text for search and
// filtering in the toolbar.
type VarFormatter interface {
	FormatVar(v any) string
}

// HTMLDumper renders arbitrary values as a rich HTML fragment.
type HTMLDumper interface {
	RenderVar(v any) string
}
