package domain

import (
	"fmt"
	"log/slog"
	"strconv"
)

// Identity names the peer behind a session. Clients present an integer id
// when they connect; the controller connects without one. The zero value is
// the controller.
type Identity struct {
	id     int
	client bool
}

// ControllerIdentity returns the identity of the distinguished peer without a client id.
func ControllerIdentity() Identity {
	return Identity{}
}

// ClientIdentity returns the identity of the client with the given id.
func ClientIdentity(id int) Identity {
	return Identity{id: id, client: true}
}

// ParseIdentity converts the raw out-of-band id parameter. An empty string
// designates the controller.
func ParseIdentity(raw string) (Identity, error) {
	if raw == "" {
		return ControllerIdentity(), nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid client id %q: %w", raw, err)
	}
	return ClientIdentity(id), nil
}

func (i Identity) IsController() bool {
	return !i.client
}

// ClientID returns the client id and false for the controller.
func (i Identity) ClientID() (int, bool) {
	return i.id, i.client
}

func (i Identity) String() string {
	if !i.client {
		return "controller"
	}
	return "client-" + strconv.Itoa(i.id)
}

// LogValue implements slog.LogValuer.
func (i Identity) LogValue() slog.Value {
	if !i.client {
		return slog.StringValue("controller")
	}
	return slog.IntValue(i.id)
}
