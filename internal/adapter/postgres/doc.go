// Package postgres implements the persistence gateway of the hub on
// PostgreSQL: schema migrations, the employee board, locations, and a circuit
// breaker that makes the hub fail fast while the database is down.
package postgres
