// Package registry tracks which client identities are online and delivers
// notifications to their sessions.
//
// One live session per identity, last writer wins. The controller (a peer without
// an identity) is never registered; it may only trigger broadcasts. Fan-out works
// on a copy of the map taken under a read lock, so delivery never holds the lock.
package registry
