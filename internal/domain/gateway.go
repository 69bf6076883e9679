package domain

import "context"

// DatasetLoader reads the full board from persistence.
type DatasetLoader interface {
	LoadAll(ctx context.Context) ([]Employee, error)
}

// Gateway is the persistence collaborator of the hub. ApplyUpdates is
// all-or-nothing.
type Gateway interface {
	DatasetLoader
	ApplyUpdates(ctx context.Context, updates []EmployeeStatusUpdate) error
	LoadLocations(ctx context.Context) (LocationMap, error)
}
