package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	logginginfra "github.com/alexisbeaulieu97/deployline/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
)

func newJSONLogger(t *testing.T, buf *bytes.Buffer) ports.Logger {
	t.Helper()
	logger, err := logginginfra.New(logginginfra.Options{
		Writer:    buf,
		Level:     "info",
		Layer:     "test",
		Component: "publisher",
	})
	require.NoError(t, err)
	return logger
}

func TestLoggingPublisherIncludesCorrelationID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	publisher := NewLoggingPublisher(newJSONLogger(t, buf))

	ctx := ports.WithCorrelationID(context.Background(), "abc-123")
	err := publisher.Publish(ctx, Event{
		Type: ports.EventDeployStarted,
		Data: map[string]interface{}{"project": "demo"},
	})
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "domain event", entry["message"])
	require.Equal(t, ports.EventDeployStarted, entry["event_type"])
	require.Equal(t, "abc-123", entry["correlation_id"])
	require.Equal(t, "demo", entry["project"])
	require.Equal(t, "info", entry["level"])
}

func TestLoggingPublisherWarnsOnFailureEvents(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	publisher := NewLoggingPublisher(newJSONLogger(t, buf))

	require.NoError(t, publisher.Publish(context.Background(), Event{Type: ports.EventHookFailed}))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
}

func TestLoggingPublisherInvokesSubscribers(t *testing.T) {
	t.Parallel()

	publisher := NewLoggingPublisher(newJSONLogger(t, &bytes.Buffer{}))

	var handled, all []string
	_, err := publisher.Subscribe(ports.EventDeployCompleted, func(ctx context.Context, event ports.DomainEvent) error {
		handled = append(handled, event.EventType())
		return nil
	})
	require.NoError(t, err)
	_, err = publisher.Subscribe("*", func(ctx context.Context, event ports.DomainEvent) error {
		all = append(all, event.EventType())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(context.Background(), Event{Type: ports.EventStageStarted}))
	require.NoError(t, publisher.Publish(context.Background(), Event{Type: ports.EventDeployCompleted}))

	require.Equal(t, []string{ports.EventDeployCompleted}, handled)
	require.Equal(t, []string{ports.EventStageStarted, ports.EventDeployCompleted}, all)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	publisher := NewLoggingPublisher(newJSONLogger(t, buf))

	calls := 0
	sub, err := publisher.Subscribe(ports.EventStageCompleted, func(ctx context.Context, event ports.DomainEvent) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(context.Background(), Event{Type: ports.EventStageCompleted}))
	sub.Unsubscribe()
	require.NoError(t, publisher.Publish(context.Background(), Event{Type: ports.EventStageCompleted}))

	require.Equal(t, 1, calls)
	require.Equal(t, 2, strings.Count(buf.String(), "domain event"))
}
