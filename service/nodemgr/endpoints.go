// SPDX-License-Identifier: BSD-3-Clause

package nodemgr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/micro"

	"github.com/u-bmc/nodemgr/pkg/ipc"
	"github.com/u-bmc/nodemgr/pkg/model"
)

// registerEndpoints wires every facade operation onto s's micro
// service through one subject-to-handler table.
func (s *Service) registerEndpoints(ctx context.Context) error {
	endpoints := []struct {
		subject string
		handler micro.HandlerFunc
	}{
		{ipc.SubjectNodeMgrSetKnob, s.createRequestHandler(ctx, s.handleSetKnob)},
		{ipc.SubjectNodeMgrResetKnob, s.createRequestHandler(ctx, s.handleResetKnob)},
		{ipc.SubjectNodeMgrIsKnobSet, s.createRequestHandler(ctx, s.handleIsKnobSet)},
		{ipc.SubjectNodeMgrFindReading, s.createRequestHandler(ctx, s.handleFindReading)},
		{ipc.SubjectNodeMgrSubscribeReading, s.createRequestHandler(ctx, s.handleSubscribeReading)},
		{ipc.SubjectNodeMgrHealth, s.createRequestHandler(ctx, s.handleHealth)},
		{ipc.SubjectNodeMgrReportStatus, s.createRequestHandler(ctx, s.handleReportStatus)},
	}

	groups := make(map[string]micro.Group)
	for _, ep := range endpoints {
		if err := ipc.RegisterEndpointWithGroupCache(s.microService, ep.subject, ep.handler, groups); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrEndpointRegistrationFailed, ep.subject, err)
		}
	}
	return nil
}

func (s *Service) handleSetKnob(ctx context.Context, req micro.Request) {
	var request setKnobRequest
	if err := json.Unmarshal(req.Data(), &request); err != nil {
		_ = req.Error("400", "invalid request", nil)
		return
	}

	resp := setKnobResponse{}
	if err := s.manager.SetKnob(model.KnobKind(request.Kind), model.DeviceIndex(request.Index), request.Value); err != nil {
		resp.Error = err.Error()
	}
	s.respondJSON(ctx, req, resp)
}

func (s *Service) handleResetKnob(ctx context.Context, req micro.Request) {
	var request resetKnobRequest
	if err := json.Unmarshal(req.Data(), &request); err != nil {
		_ = req.Error("400", "invalid request", nil)
		return
	}

	resp := resetKnobResponse{}
	if err := s.manager.ResetKnob(model.KnobKind(request.Kind), model.DeviceIndex(request.Index)); err != nil {
		resp.Error = err.Error()
	}
	s.respondJSON(ctx, req, resp)
}

func (s *Service) handleIsKnobSet(ctx context.Context, req micro.Request) {
	var request isKnobSetRequest
	if err := json.Unmarshal(req.Data(), &request); err != nil {
		_ = req.Error("400", "invalid request", nil)
		return
	}

	resp := isKnobSetResponse{}
	set, err := s.manager.IsKnobSet(model.KnobKind(request.Kind), model.DeviceIndex(request.Index))
	if err != nil {
		resp.Error = err.Error()
	}
	resp.Set = set
	s.respondJSON(ctx, req, resp)
}

func (s *Service) handleFindReading(ctx context.Context, req micro.Request) {
	var request findReadingRequest
	if err := json.Unmarshal(req.Data(), &request); err != nil {
		_ = req.Error("400", "invalid request", nil)
		return
	}

	resp := findReadingResponse{}
	value, available, err := s.manager.FindReading(model.ReadingKind(request.Kind), model.DeviceIndex(request.Index))
	if err != nil {
		resp.Error = err.Error()
	}
	resp.Value = toWireValue(value)
	resp.Available = available
	s.respondJSON(ctx, req, resp)
}

// handleSubscribeReading registers a subscriber that republishes the
// reading's events to request.ReplySubject for the lifetime of the
// service process; there is no unsubscribe handshake.
func (s *Service) handleSubscribeReading(ctx context.Context, req micro.Request) {
	var request subscribeReadingRequest
	if err := json.Unmarshal(req.Data(), &request); err != nil {
		_ = req.Error("400", "invalid request", nil)
		return
	}

	resp := subscribeReadingResponse{}
	kind := model.ReadingKind(request.Kind)
	index := model.DeviceIndex(request.Index)
	err := s.manager.SubscribeReading(kind, index, func(k model.ReadingKind, i model.DeviceIndex, event model.Event, value model.Value) {
		ev := readingEvent{Kind: int(k), Index: uint8(i), Event: event.String(), Value: toWireValue(value)}
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		_ = s.nc.Publish(request.ReplySubject, data)
	})
	if err != nil {
		resp.Error = err.Error()
	}
	s.respondJSON(ctx, req, resp)
}

func (s *Service) handleHealth(ctx context.Context, req micro.Request) {
	resp := healthResponse{
		OK:          s.manager.Health() == model.HealthOK,
		SensorCount: s.manager.SensorCount(),
		KnobCount:   s.manager.KnobCount(),
	}
	s.respondJSON(ctx, req, resp)
}

func (s *Service) handleReportStatus(ctx context.Context, req micro.Request) {
	sensors, readings, knobs := s.manager.ReportStatus()
	resp := reportStatusResponse{
		LifecycleState: s.manager.LifecycleState(),
		Sensors:        sensors,
		Readings:       readings,
		Knobs:          knobs,
	}
	s.respondJSON(ctx, req, resp)
}

func (s *Service) respondJSON(ctx context.Context, req micro.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		ipc.RespondWithError(ctx, req, err, "marshal facade response")
		return
	}
	if err := req.Respond(data); err != nil {
		s.logger.ErrorContext(ctx, "send facade response", "subject", req.Subject(), "error", err)
	}
}
