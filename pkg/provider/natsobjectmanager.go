// SPDX-License-Identifier: BSD-3-Clause

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/u-bmc/nodemgr/pkg/ipc"
)

// objectsRequest/objectsReply and changedEvent are the wire shapes this
// NATS-based ObjectManager exchanges. The IPC fabric here is NATS, so
// these play the role GetManagedObjects/PropertiesChanged play on a
// D-Bus system.
type objectsRequest struct {
	PathPrefix string `json:"path_prefix"`
}

type objectsReply struct {
	Objects []ManagedObject `json:"objects"`
}

type changedEvent struct {
	Path    string         `json:"path"`
	Changed map[string]any `json:"changed"`
}

type setPropertyRequest struct {
	Path     string `json:"path"`
	Property string `json:"property"`
	Value    any    `json:"value"`
}

type setPropertyReply struct {
	Error string `json:"error,omitempty"`
}

// NATSObjectManager implements ObjectManager over a NATS connection,
// request/reply for the snapshot call and a subscription for change
// notifications.
type NATSObjectManager struct {
	nc             *nats.Conn
	requestTimeout time.Duration
}

// NewNATSObjectManager returns an ObjectManager bound to nc.
func NewNATSObjectManager(nc *nats.Conn, requestTimeout time.Duration) *NATSObjectManager {
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	return &NATSObjectManager{nc: nc, requestTimeout: requestTimeout}
}

func (m *NATSObjectManager) GetManagedObjects(ctx context.Context, pathPrefix string) ([]ManagedObject, error) {
	ctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	defer cancel()

	payload, err := json.Marshal(objectsRequest{PathPrefix: pathPrefix})
	if err != nil {
		return nil, fmt.Errorf("provider: marshal objects request: %w", err)
	}

	msg, err := m.nc.RequestWithContext(ctx, ipc.InternalAcceleratorObjects, payload)
	if err != nil {
		return nil, fmt.Errorf("provider: request managed objects: %w", err)
	}

	var reply objectsReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("provider: decode objects reply: %w", err)
	}
	return reply.Objects, nil
}

func (m *NATSObjectManager) SubscribePropertiesChanged(ctx context.Context, pathPrefix string, fn func(path string, changed map[string]any)) error {
	sub, err := m.nc.Subscribe(ipc.InternalAcceleratorPropertiesChanged, func(msg *nats.Msg) {
		var ev changedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		if pathPrefix != "" && !hasPrefix(ev.Path, pathPrefix) {
			return
		}
		fn(ev.Path, ev.Changed)
	})
	if err != nil {
		return fmt.Errorf("provider: subscribe properties changed: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (m *NATSObjectManager) SetProperty(ctx context.Context, path, property string, value any) error {
	ctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	defer cancel()

	payload, err := json.Marshal(setPropertyRequest{Path: path, Property: property, Value: value})
	if err != nil {
		return fmt.Errorf("provider: marshal set property request: %w", err)
	}

	msg, err := m.nc.RequestWithContext(ctx, ipc.InternalAcceleratorPropertiesChanged+".set", payload)
	if err != nil {
		return fmt.Errorf("provider: request set property: %w", err)
	}

	var reply setPropertyReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("provider: decode set property reply: %w", err)
	}
	if reply.Error != "" {
		return fmt.Errorf("provider: set property: %s", reply.Error)
	}
	return nil
}

func hasPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}
