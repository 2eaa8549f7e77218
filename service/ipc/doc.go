// SPDX-License-Identifier: BSD-3-Clause

// Package ipc provides an embedded NATS server used as the in-process
// message bus the Node Manager device layer's façade is
// served over. It is typically the first service started, since
// nodemgr.Service.Run needs a ready in-process connection provider
// before it can call micro.AddService.
package ipc
