// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/micro"
)

// Facade subjects the node manager answers on. Callers depend on these
// constants instead of constructing subjects dynamically.
const (
	// Knob control
	SubjectNodeMgrSetKnob   = "nodemgr.set_knob"
	SubjectNodeMgrResetKnob = "nodemgr.reset_knob"
	SubjectNodeMgrIsKnobSet = "nodemgr.is_knob_set"

	// Reading access
	SubjectNodeMgrFindReading      = "nodemgr.find_reading"
	SubjectNodeMgrSubscribeReading = "nodemgr.subscribe_reading"

	// Diagnostics
	SubjectNodeMgrHealth       = "nodemgr.health"
	SubjectNodeMgrReportStatus = "nodemgr.report_status"
)

// Internal subjects the accelerator entity provider exchanges with the
// object-manager service.
const (
	InternalAcceleratorObjects           = "internal.nodemgr.accelerator.objects"
	InternalAcceleratorPropertiesChanged = "internal.nodemgr.accelerator.properties_changed"
)

// SubjectError is a malformed-subject failure from ParseSubject.
type SubjectError struct {
	Subject string
	Reason  string
}

func (e *SubjectError) Error() string {
	return fmt.Sprintf("invalid subject %q: %s", e.Subject, e.Reason)
}

// ParseSubject splits a two-token subject like "nodemgr.set_knob" into
// its group and endpoint components. NATS micro endpoint names may not
// contain dots, so dotted subjects must register as group + endpoint.
func ParseSubject(subject string) (group, endpoint string, err error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 2 {
		return "", "", &SubjectError{Subject: subject, Reason: "must contain exactly one dot"}
	}

	group = strings.TrimSpace(parts[0])
	endpoint = strings.TrimSpace(parts[1])
	if group == "" || endpoint == "" {
		return "", "", &SubjectError{Subject: subject, Reason: "group and endpoint must be non-empty"}
	}

	return group, endpoint, nil
}

// RegisterEndpointWithGroupCache registers handler for subject on
// service, creating the subject's micro group on first use and reusing
// it from groups afterwards.
func RegisterEndpointWithGroupCache(service micro.Service, subject string, handler micro.Handler, groups map[string]micro.Group) error {
	groupName, endpointName, err := ParseSubject(subject)
	if err != nil {
		return err
	}

	group, exists := groups[groupName]
	if !exists {
		group = service.AddGroup(groupName)
		groups[groupName] = group
	}

	if err := group.AddEndpoint(endpointName, handler); err != nil {
		return fmt.Errorf("register endpoint %s in group %s: %w", endpointName, groupName, err)
	}

	return nil
}
