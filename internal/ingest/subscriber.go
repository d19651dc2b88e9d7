// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/services/health"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

// Subjects carry one server's telemetry:
//
//	gust.telemetry.<server_id>.snapshot  flat health snapshot JSON
//	gust.telemetry.<server_id>.command   command execution JSON
//	gust.telemetry.<server_id>.metric    single scalar metric JSON
const (
	subjectPrefix   = "gust.telemetry"
	snapshotSubject = subjectPrefix + ".*.snapshot"
	commandSubject  = subjectPrefix + ".*.command"
	metricSubject   = subjectPrefix + ".*.metric"

	// queueGroup load-balances ingest across engine instances.
	queueGroup = "gust-ingest"

	// handleTimeout bounds one message's store writes.
	handleTimeout = 10 * time.Second
)

// metricPayload is the wire shape of a scalar metric message.
type metricPayload struct {
	Type      string                 `json:"metric_type"`
	Value     float64                `json:"value"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Subscriber routes telemetry subjects into the coordinator.
type Subscriber struct {
	client      *Client
	coordinator *health.Coordinator
	logger      *logger.Logger
	subs        []*nats.Subscription
}

// NewSubscriber creates the ingest subscriber.
func NewSubscriber(client *Client, coordinator *health.Coordinator, log *logger.Logger) *Subscriber {
	return &Subscriber{
		client:      client,
		coordinator: coordinator,
		logger:      log.Named("ingest"),
	}
}

// Start subscribes to all telemetry subjects.
func (s *Subscriber) Start() error {
	routes := []struct {
		subject string
		kind    string
		handle  func(ctx context.Context, serverID string, data []byte) error
	}{
		{snapshotSubject, "snapshot", s.handleSnapshot},
		{commandSubject, "command", s.handleCommand},
		{metricSubject, "metric", s.handleMetric},
	}

	for _, route := range routes {
		route := route
		sub, err := s.client.Conn().QueueSubscribe(route.subject, queueGroup, func(msg *nats.Msg) {
			s.dispatch(route.kind, msg, route.handle)
		})
		if err != nil {
			return errors.Wrap(err, errors.CodeIngestRejected, "failed to subscribe").
				WithDetail("subject", route.subject)
		}
		s.subs = append(s.subs, sub)
		s.logger.Debug("subscribed", "subject", route.subject, "queue", queueGroup)
	}

	s.logger.Info("ingest started", "subjects", len(s.subs))
	return nil
}

// Stop unsubscribes from all subjects.
func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("unsubscribe failed", "subject", sub.Subject, "error", err)
		}
	}
	s.subs = nil
}

// dispatch validates the subject, extracts the server id and runs the
// handler with a bounded context.
func (s *Subscriber) dispatch(kind string, msg *nats.Msg, handle func(ctx context.Context, serverID string, data []byte) error) {
	serverID, ok := serverIDFromSubject(msg.Subject)
	if !ok {
		telemetry.IngestMessagesTotal.WithLabelValues(kind, "rejected").Inc()
		s.logger.Warn("malformed subject", "subject", msg.Subject)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := handle(ctx, serverID, msg.Data); err != nil {
		telemetry.IngestMessagesTotal.WithLabelValues(kind, "failed").Inc()
		s.logger.Warn("ingest failed",
			"kind", kind, "server_id", serverID, "error", err)
		return
	}
	telemetry.IngestMessagesTotal.WithLabelValues(kind, "ok").Inc()
}

func (s *Subscriber) handleSnapshot(ctx context.Context, serverID string, data []byte) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.Wrap(err, errors.CodeDecodeFailed, "invalid snapshot payload")
	}

	ts := payload["timestamp"]
	delete(payload, "timestamp")
	delete(payload, "server_id")

	_, err := s.coordinator.StoreSnapshot(ctx, serverID, payload, []string{"ingest"}, ts)
	return err
}

func (s *Subscriber) handleCommand(ctx context.Context, serverID string, data []byte) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.Wrap(err, errors.CodeDecodeFailed, "invalid command payload")
	}

	_, err := s.coordinator.StoreCommand(ctx, serverID, payload)
	return err
}

func (s *Subscriber) handleMetric(ctx context.Context, serverID string, data []byte) error {
	var payload metricPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.Wrap(err, errors.CodeDecodeFailed, "invalid metric payload")
	}

	_, err := s.coordinator.StoreMetric(ctx, serverID, payload.Type, payload.Value, payload.Metadata, payload.Timestamp)
	return err
}

// serverIDFromSubject pulls the server id token out of
// gust.telemetry.<server_id>.<kind>.
func serverIDFromSubject(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 4 || parts[0]+"."+parts[1] != subjectPrefix {
		return "", false
	}
	if parts[2] == "" || parts[2] == "*" || parts[2] == ">" {
		return "", false
	}
	return parts[2], true
}
