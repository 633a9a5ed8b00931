//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"pageguard/internal/audit"
	"pageguard/pkg/testutil/containers"
)

func TestKafkaSink(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	broker := containers.NewRedpandaContainer(t)

	const topic = "pageguard.audit.test"
	sink, err := audit.NewKafkaSink(ctx, []string{broker.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	entry := audit.Entry{
		Timestamp: time.Now(),
		TenantID:  "tenant-1",
		EventID:   "ev-1",
		Action:    audit.ActionAnchorSubmitted,
		Decision:  "anchored",
	}
	require.NoError(t, sink.Write(ctx, entry))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "tenant-1", string(records[0].Key))

	var got audit.Entry
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, audit.ActionAnchorSubmitted, got.Action)
	require.Equal(t, "ev-1", got.EventID)
}
