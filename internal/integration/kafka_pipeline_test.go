//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/blast-vibration-service/internal/adapter/kafka"
	"github.com/couchcryptid/blast-vibration-service/internal/config"
	"github.com/couchcryptid/blast-vibration-service/internal/domain"
	"github.com/couchcryptid/blast-vibration-service/internal/observability"
	"github.com/couchcryptid/blast-vibration-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testPredictionTopic = "test-blast-predictions"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("blast-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

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
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedPrediction struct {
	Record  domain.PredictionRecord
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedPrediction {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from prediction topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.PredictionRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal prediction")
	return publishedPrediction{Record: rec, Key: string(msg.Key), Headers: headers}
}

func predictionRecord(t *testing.T, id string, distance float64) domain.PredictionRecord {
	t.Helper()
	params := domain.BlastParameters{SelectedMine: "Jayanta OCP", Distance: distance, MaxChargeWeight: 100}
	pred, err := domain.NewEstimator(domain.DefaultSiteTable()).PredictImpact(params.BlastInput())
	require.NoError(t, err)
	return domain.PredictionRecord{
		ID:             id,
		Parameters:     params,
		PredictedPPV:   pred.PPV,
		ScaledDistance: pred.ScaledDistance,
		Level:          pred.Level,
		Description:    pred.Description,
		Source:         domain.SourceLocal,
		CreatedAt:      time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC),
	}
}

// TestPredictionPublishing wires Queue → Transformer → kafka.Writer against a
// real broker and verifies every queued prediction arrives with its headers.
func TestPredictionPublishing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testPredictionTopic)

	cfg := &config.Config{
		KafkaBrokers:         []string{broker},
		KafkaPredictionTopic: testPredictionTopic,
		BatchSize:            10,
		BatchFlushInterval:   100 * time.Millisecond,
	}

	queue := pipeline.NewQueue(100, cfg.BatchFlushInterval)
	distances := []float64{100, 50, 400}
	for i, d := range distances {
		require.True(t, queue.Enqueue(predictionRecord(t, fmt.Sprintf("pred-%d", i), d)))
	}

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(queue, pipeline.NewTransformer(), writer, discardLogger(), metrics, cfg.BatchSize)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testPredictionTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]publishedPrediction, len(distances))
	for len(received) < len(distances) {
		pp := readPublished(ctx, t, consumer)
		received[pp.Key] = pp
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	moderate := received["pred-0"]
	assert.Equal(t, "pred-0", moderate.Record.ID)
	assert.InDelta(t, 27.63, moderate.Record.PredictedPPV, 1e-9)
	assert.Equal(t, domain.DamageModerate, moderate.Record.Level)
	assert.Equal(t, "Moderate", moderate.Headers["damage_level"])
	assert.Equal(t, "local", moderate.Headers["source"])
	assert.Equal(t, "Jayanta OCP", moderate.Headers["mine"])
	assert.Equal(t, "2024-04-26T15:00:00Z", moderate.Headers["created_at"])

	for _, pp := range received {
		assert.Equal(t, pp.Record.Level.String(), pp.Headers["damage_level"])
	}
}
