// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"fmt"
	"net"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ConnProvider hands other services in-process connections to the
// embedded NATS server, blocking until the server is ready rather than
// requiring callers to sequence startup order themselves.
type ConnProvider struct {
	server *server.Server
}

// InProcessConn implements nats.InProcessConnProvider.
func (p *ConnProvider) InProcessConn() (net.Conn, error) {
	if p.server == nil {
		return nil, ErrConnectionNotAvailable
	}
	if !p.server.ReadyForConnections(time.Minute) {
		return nil, ErrServerNotReady
	}
	conn, err := p.server.InProcessConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInProcessConnFailed, err)
	}
	return conn, nil
}
