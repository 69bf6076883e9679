// Package redis relays accepted board updates between hub instances over
// Redis pub/sub, so clients connected to any instance see every change.
package redis
