package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pscheid92/signboard/internal/domain"
	apperrors "github.com/pscheid92/signboard/internal/errors"
	"github.com/pscheid92/signboard/internal/hub"
)

// HubService is the part of the hub invoked by peers over a session.
type HubService interface {
	OnConnected(ctx context.Context, identity domain.Identity, session domain.Session)
	OnReconnected(ctx context.Context, identity domain.Identity, session domain.Session)
	OnDisconnected(ctx context.Context, identity domain.Identity, session domain.Session)
	GetEmployeeData(ctx context.Context) *domain.Dataset
	GetLocationData(ctx context.Context) domain.LocationMap
	DataUpdateFromClient(ctx context.Context, caller domain.Identity, updates []domain.EmployeeStatusUpdate)
	ShutDown(ctx context.Context, caller domain.Identity)
}

// invocation is an inbound frame. Without an invocationId no reply is sent.
type invocation struct {
	InvocationID string            `json:"invocationId,omitempty"`
	Method       string            `json:"method"`
	Arguments    []json.RawMessage `json:"arguments"`
}

type completion struct {
	InvocationID string `json:"invocationId"`
	Result       any    `json:"result"`
}

type failure struct {
	InvocationID string                  `json:"invocationId,omitempty"`
	Error        apperrors.ErrorResponse `json:"error"`
}

// dispatcher decodes invocations and calls the hub. Protocol faults are
// answered with an error reply and never reach the hub.
type dispatcher struct {
	hub HubService
}

// dispatch handles one inbound frame and returns the encoded reply, or nil
// when no reply is due.
func (d *dispatcher) dispatch(ctx context.Context, caller domain.Identity, frame []byte) []byte {
	var inv invocation
	if err := json.Unmarshal(frame, &inv); err != nil {
		return d.fail(ctx, "", apperrors.ValidationError("malformed frame").WithField("reason", err.Error()))
	}

	result, err := d.invoke(ctx, caller, inv)
	if err != nil {
		return d.fail(ctx, inv.InvocationID, err.WithField("method", inv.Method))
	}
	if inv.InvocationID == "" {
		return nil
	}

	reply, encErr := json.Marshal(completion{InvocationID: inv.InvocationID, Result: result})
	if encErr != nil {
		return d.fail(ctx, inv.InvocationID, apperrors.InternalError("failed to encode result", encErr))
	}
	return reply
}

func (d *dispatcher) invoke(ctx context.Context, caller domain.Identity, inv invocation) (any, *apperrors.Error) {
	switch inv.Method {
	case hub.MethodGetEmployeeData:
		ds := d.hub.GetEmployeeData(ctx)
		if ds == nil {
			return nil, nil
		}
		return ds.Employees, nil

	case hub.MethodGetLocationData:
		locations := d.hub.GetLocationData(ctx)
		if locations == nil {
			return nil, nil
		}
		return locations, nil

	case hub.MethodDataUpdateFromClient:
		if len(inv.Arguments) != 1 {
			return nil, apperrors.ValidationError("expected exactly one argument")
		}
		var updates []domain.EmployeeStatusUpdate
		if err := json.Unmarshal(inv.Arguments[0], &updates); err != nil {
			return nil, apperrors.ValidationError("invalid update list").WithField("reason", err.Error())
		}
		d.hub.DataUpdateFromClient(ctx, caller, updates)
		return nil, nil

	case hub.MethodShutDown:
		d.hub.ShutDown(ctx, caller)
		return nil, nil

	default:
		return nil, apperrors.NotFoundError("unknown hub method")
	}
}

func (d *dispatcher) fail(ctx context.Context, invocationID string, err *apperrors.Error) []byte {
	slog.InfoContext(ctx, "Invocation rejected", "error_type", err.Type, "message", err.Message, "context", err.Context)

	reply, encErr := json.Marshal(failure{InvocationID: invocationID, Error: err.ToResponse()})
	if encErr != nil {
		slog.ErrorContext(ctx, "Failed to encode error reply", "error", encErr)
		return nil
	}
	return reply
}
