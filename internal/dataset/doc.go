// Package dataset implements the staleness-gated cache of the sign-in board.
//
// The Cache holds the last snapshot loaded from persistence and reloads it lazily,
// only when an accepted update has marked it dirty. Readers never see a partially
// installed snapshot.
package dataset
