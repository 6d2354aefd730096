package recorder

import (
	"context"

	"OHLCPipeline/internal/model"
)

// NoopStore is a no-op implementation used when SQLite is not configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) Name() string                                               { return "noop" }
func (n *NoopStore) Persist(_ context.Context, _ *model.Series, _ string) error { return nil }
func (n *NoopStore) Reset() error                                               { return nil }
func (n *NoopStore) Query(_ context.Context, _ string, _ Filter) (*model.Series, error) {
	return model.NewSeries(), nil
}
