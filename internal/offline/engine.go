package offline

import (
	"context"

	"codeberg.org/snonux/parlo/internal/translation"
)

// TaskTranslation is the only task the manager asks loaders for.
const TaskTranslation = "translation"

// LoadOptions parameterizes the construction of an engine.
type LoadOptions struct {
	Task      string
	Model     string
	Placement translation.Placement
}

// Engine is a constructed, ready-to-use local translation capability.
type Engine interface {
	Translate(ctx context.Context, text, source, target string) (translation.Output, error)
}

// Loader constructs engines. A failed Load must not leave resources behind.
type Loader interface {
	Load(ctx context.Context, opts LoadOptions) (Engine, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, opts LoadOptions) (Engine, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, opts LoadOptions) (Engine, error) {
	return f(ctx, opts)
}
