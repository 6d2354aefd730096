package recorder

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"OHLCPipeline/internal/model"
)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid table name")

var tableNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Filter narrows a query. Zero values mean "any".
type Filter struct {
	Ticker string
	Year   int
	Month  int
}

// Store persists validated series and reads them back.
type Store interface {
	// Persist appends every row of s to table, creating it if needed.
	// An empty series is a no-op.
	Persist(ctx context.Context, s *model.Series, table string) error
	// Query returns matching rows ordered by date. On error the returned series
	// is empty, never nil.
	Query(ctx context.Context, table string, f Filter) (*model.Series, error)
	// Reset removes all persisted data.
	Reset() error
	Name() string
}

func checkTable(name string) error {
	if !tableNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}
