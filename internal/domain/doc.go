// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (identity.go, employee.go, session.go, gateway.go, etc.)
// hold shared types and cross-cutting interfaces. No implementation code - just contracts.
// Prevents circular imports between the hub core and its adapters.
package domain
