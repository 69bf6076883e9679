package domain

import "time"

// EmployeeStatus is the sign-in board state of an employee.
type EmployeeStatus string

const (
	StatusIn    EmployeeStatus = "in"
	StatusOut   EmployeeStatus = "out"
	StatusAway  EmployeeStatus = "away"
	StatusLeave EmployeeStatus = "leave"
)

// ParseEmployeeStatus converts a string to an EmployeeStatus, reporting
// whether the value is known.
func ParseEmployeeStatus(s string) (EmployeeStatus, bool) {
	switch EmployeeStatus(s) {
	case StatusIn, StatusOut, StatusAway, StatusLeave:
		return EmployeeStatus(s), true
	default:
		return "", false
	}
}

type Employee struct {
	ID             int            `json:"id"`
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	Extension      string         `json:"extension"`
	Status         EmployeeStatus `json:"status"`
	LocationID     int            `json:"locationId"`
	Comment        string         `json:"comment"`
	ExpectedReturn *time.Time     `json:"expectedReturn,omitempty"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// EmployeeStatusUpdate is a proposed change to one employee record. The hub
// applies it to persistence and re-broadcasts it; it is never stored by the hub.
type EmployeeStatusUpdate struct {
	EmployeeID     int            `json:"employeeId"`
	Status         EmployeeStatus `json:"status"`
	LocationID     int            `json:"locationId"`
	Comment        string         `json:"comment"`
	ExpectedReturn *time.Time     `json:"expectedReturn,omitempty"`
}

// Dataset is an immutable snapshot of the board. It is replaced wholesale on
// reload and never mutated record by record.
type Dataset struct {
	Employees []Employee
	LoadedAt  time.Time
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Employees)
}

// LocationMap maps location ids to display names.
type LocationMap map[int]string
