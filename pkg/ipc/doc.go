// SPDX-License-Identifier: BSD-3-Clause

// Package ipc holds the node manager's shared NATS vocabulary: the
// facade subjects the policy layer calls (SubjectNodeMgr*), the
// internal object-manager subjects the accelerator provider polls and
// watches (InternalAccelerator*), and the RespondWithError helper that
// logs and answers a failed micro request in one place.
//
// Subjects live here rather than in the service packages so a caller
// can depend on the constants without importing the service that
// implements them.
package ipc
