package domain

// Session is the opaque handle of a live transport connection. It is owned
// by the transport and only referenced by the hub.
type Session interface {
	ID() string
	// Notify queues a fire-and-forget notification for the peer. It must not
	// block; the registry calls it while holding its lock.
	Notify(n Notification) error
}

// Notification methods sent from the hub to connected peers.
const (
	MethodClientConnected   = "ClientConnected"
	MethodClientReconnected = "ClientReconnected"
	MethodShutdown          = "Shutdown"
	MethodClientDataUpdate  = "ClientDataUpdate"
)

// Notification is a server-to-client invocation without a reply.
type Notification struct {
	Method    string `json:"method"`
	Arguments []any  `json:"arguments"`
}

func ClientConnected() Notification {
	return Notification{Method: MethodClientConnected, Arguments: []any{}}
}

func ClientReconnected() Notification {
	return Notification{Method: MethodClientReconnected, Arguments: []any{}}
}

func Shutdown() Notification {
	return Notification{Method: MethodShutdown, Arguments: []any{}}
}

func ClientDataUpdate(updates []EmployeeStatusUpdate) Notification {
	return Notification{Method: MethodClientDataUpdate, Arguments: []any{updates}}
}
