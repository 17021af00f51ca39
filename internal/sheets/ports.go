package sheets

import (
	"context"

	"ciclo/internal/core"
)

// Ports for outbound adapters.
type (
	// CycleExporter appends one row per closed cycle to a report sheet.
	CycleExporter interface {
		Append(ctx context.Context, c core.Cycle) (rowRef string, err error)
	}
)
