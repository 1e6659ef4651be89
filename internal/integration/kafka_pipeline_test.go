//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/3dfirelab/webFET/internal/adapter/kafka"
	"github.com/3dfirelab/webFET/internal/domain"
	"github.com/3dfirelab/webFET/internal/emit"
	"github.com/3dfirelab/webFET/internal/observability"
	"github.com/3dfirelab/webFET/internal/pipeline"
	"github.com/3dfirelab/webFET/internal/source"
)

const testTopic = "fire-records-test"

// sliceFixture holds two observations of the same fire event on the same UTC
// day, so a full stream produces two raw records and one aggregate.
const sliceFixture = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::4326"}},
  "features": [
    {
      "type": "Feature",
      "properties": {"id_fire_event": "1021", "frp": 10.0, "time": "2024-07-01 10:00:00"},
      "geometry": {"type": "Point", "coordinates": [2.0, 41.0]}
    },
    {
      "type": "Feature",
      "properties": {"id_fire_event": "1021", "frp": 30.0, "time": "2024-07-01 11:00:00"},
      "geometry": {"type": "Point", "coordinates": [2.0, 41.0]}
    }
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka and returns its bootstrap broker.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// record holds a deserialized message read from the test topic.
type record struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func readRecord(ctx context.Context, t *testing.T, consumer *kafkago.Reader) record {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from test topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return record{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestWriterRoundTrip verifies the adapter layer: records published through
// kafka.Writer arrive with the key, value and headers the stream attaches.
func TestWriterRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.July, 1, 10, 30, 0, 0, time.UTC),
	))
	t.Cleanup(func() { domain.SetClock(nil) })

	writer := kafka.NewWriter([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	rawLine := []byte(`{"type":"Feature","properties":{"id_fire_event":"1021"}}`)
	aggLine := []byte(`{"type":"Feature","properties":{"cell":"8439259ffffffff"}}`)
	require.NoError(t, writer.Emit(ctx, emit.KindRaw, "1021", rawLine))
	require.NoError(t, writer.Emit(ctx, emit.KindAggregate, "8439259ffffffff", aggLine))

	consumer := newConsumer(t, broker)

	first := readRecord(ctx, t, consumer)
	assert.Equal(t, "1021", first.Key)
	assert.Equal(t, rawLine, first.Value)
	assert.Equal(t, "raw", first.Headers["record_kind"])
	assert.Equal(t, "2024-07-01T10:30:00Z", first.Headers["produced_at"])

	second := readRecord(ctx, t, consumer)
	assert.Equal(t, "8439259ffffffff", second.Key)
	assert.Equal(t, aggLine, second.Value)
	assert.Equal(t, "aggregate", second.Headers["record_kind"])
}

// TestStreamPublishesToKafka runs the full pipeline over a slice directory
// with a fan-out sink and verifies the topic carries exactly the NDJSON
// lines written to the primary output, in order.
func TestStreamPublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC),
	))
	t.Cleanup(func() { domain.SetClock(nil) })

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dataDir, "gdf_0001.geojson"), []byte(sliceFixture), 0o600))

	var stdout bytes.Buffer
	writer := kafka.NewWriter([]string{broker}, testTopic, discardLogger())
	sink := emit.MultiSink{emit.NewNDJSONSink(&stdout), writer}

	metrics := observability.NewMetricsForTesting()
	scanner := source.NewScanner(dataDir, discardLogger(), metrics)
	p := pipeline.New(scanner, sink, pipeline.Options{
		Resolution:  4,
		LowZoomMax:  4,
		HighZoomMin: 5,
	}, discardLogger(), metrics)

	require.NoError(t, p.Run(ctx))
	require.NoError(t, sink.Close())

	lines := bytes.Split(bytes.TrimSpace(stdout.Bytes()), []byte("\n"))
	require.Len(t, lines, 3, "two raw records and one aggregate")

	consumer := newConsumer(t, broker)

	for i, want := range lines {
		got := readRecord(ctx, t, consumer)
		assert.Equal(t, string(want), string(got.Value), "line %d", i)
	}

	// The aggregate line is keyed by its cell id; decode it from the
	// primary output so the expectation stays self-consistent.
	var agg struct {
		Properties struct {
			Cell string `json:"cell"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(lines[2], &agg))

	verify := newConsumer(t, broker)
	first := readRecord(ctx, t, verify)
	assert.Equal(t, "1021", first.Key)
	assert.Equal(t, "raw", first.Headers["record_kind"])
	second := readRecord(ctx, t, verify)
	assert.Equal(t, "1021", second.Key)
	third := readRecord(ctx, t, verify)
	assert.Equal(t, agg.Properties.Cell, third.Key)
	assert.Equal(t, "aggregate", third.Headers["record_kind"])
}
