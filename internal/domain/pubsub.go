package domain

import "context"

// UpdateRelay forwards accepted updates to other hub instances.
type UpdateRelay interface {
	PublishUpdates(ctx context.Context, updates []EmployeeStatusUpdate) error
}
