package storage

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestAMQPHeaderCarrier_RoundTrip(t *testing.T) {
	prop := propagation.TraceContext{}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := amqp.Table{}
	prop.Inject(ctx, amqpHeaderCarrier(headers))
	assert.Contains(t, amqpHeaderCarrier(headers).Keys(), "traceparent")

	got := trace.SpanContextFromContext(prop.Extract(context.Background(), amqpHeaderCarrier(headers)))
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
}

func TestAMQPHeaderCarrier_NonStringValues(t *testing.T) {
	c := amqpHeaderCarrier(amqp.Table{"x-retry": int32(3)})
	assert.Equal(t, "", c.Get("x-retry"))
	assert.Equal(t, "", c.Get("missing"))
}

func TestAMQPDelivery(t *testing.T) {
	d := amqpDelivery{d: amqp.Delivery{Body: []byte("{}"), DeliveryTag: 7}}
	assert.Equal(t, []byte("{}"), d.Body())
	assert.Equal(t, "7", d.MessageID())
	ctx := context.Background()
	assert.Equal(t, ctx, d.Context(ctx))

	d = amqpDelivery{d: amqp.Delivery{MessageId: "m-1"}}
	assert.Equal(t, "m-1", d.MessageID())
}
