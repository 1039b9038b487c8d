package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthire-ats/internal/storage"
)

type fakeDelivery struct {
	id   string
	body []byte

	mu       sync.Mutex
	acked    bool
	rejected bool
}

func (d *fakeDelivery) Body() []byte                                  { return d.body }
func (d *fakeDelivery) MessageID() string                             { return d.id }
func (d *fakeDelivery) Context(parent context.Context) context.Context { return parent }

func (d *fakeDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked = true
	return nil
}

func (d *fakeDelivery) Reject() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejected = true
	return nil
}

func (d *fakeDelivery) state() (acked, rejected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked, d.rejected
}

// fakeSource 投递预置消息后关闭通道
type fakeSource struct {
	deliveries []*fakeDelivery
	err        error
	queue      string
}

func (s *fakeSource) Consume(_ context.Context, queueName string, _ int) (<-chan storage.Delivery, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.queue = queueName
	ch := make(chan storage.Delivery, len(s.deliveries))
	for _, d := range s.deliveries {
		ch <- d
	}
	close(ch)
	return ch, nil
}

func jsonDelivery(t *testing.T, id string, msg storage.ResumeUploadMessage) *fakeDelivery {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return &fakeDelivery{id: id, body: body}
}

func TestNewWorker_Validation(t *testing.T) {
	_, err := NewWorker(nil, &fakeSource{})
	assert.Error(t, err)

	svc := newTestService(t, &fakeFetcher{}, newFakeWriter(), nil)
	_, err = NewWorker(svc, nil)
	assert.Error(t, err)
}

func TestWorker_AcksSuccessAndRejectsFailures(t *testing.T) {
	good := uploadMessage("0190a1b2-0000-7000-8000-0000000000a1")
	missing := uploadMessage("0190a1b2-0000-7000-8000-0000000000a2")

	fetcher := &fakeFetcher{data: map[string][]byte{good.OriginalFilePathOSS: []byte(testResume)}}
	writer := newFakeWriter()
	svc := newTestService(t, fetcher, writer, nil, WithWorkers(2))

	okDelivery := jsonDelivery(t, "m1", good)
	failDelivery := jsonDelivery(t, "m2", missing)
	badDelivery := &fakeDelivery{id: "m3", body: []byte("{not json")}

	source := &fakeSource{deliveries: []*fakeDelivery{okDelivery, failDelivery, badDelivery}}
	w, err := NewWorker(svc, source)
	require.NoError(t, err)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, svc.Settings().Queue, source.queue)

	acked, rejected := okDelivery.state()
	assert.True(t, acked)
	assert.False(t, rejected)

	acked, rejected = failDelivery.state()
	assert.False(t, acked)
	assert.True(t, rejected)
	_, failed := writer.failedReason(missing.SubmissionUUID)
	assert.True(t, failed)

	acked, rejected = badDelivery.state()
	assert.False(t, acked)
	assert.True(t, rejected)

	assert.Len(t, writer.saved, 1)
}

func TestWorker_MessageTimeoutRejects(t *testing.T) {
	msg := uploadMessage("0190a1b2-0000-7000-8000-0000000000b1")
	writer := newFakeWriter()
	svc := newTestService(t, &fakeFetcher{block: true}, writer, nil, WithMessageTimeout(50*time.Millisecond))

	d := jsonDelivery(t, "slow", msg)
	w, err := NewWorker(svc, &fakeSource{deliveries: []*fakeDelivery{d}})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, w.Run(context.Background()))
	assert.Less(t, time.Since(start), 5*time.Second)

	acked, rejected := d.state()
	assert.False(t, acked)
	assert.True(t, rejected)

	reason, failed := writer.failedReason(msg.SubmissionUUID)
	assert.True(t, failed)
	assert.Contains(t, reason, "deadline exceeded")
}

func TestWorker_ConsumeError(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{}, newFakeWriter(), nil)
	w, err := NewWorker(svc, &fakeSource{err: errors.New("channel closed")})
	require.NoError(t, err)

	err = w.Run(context.Background())
	assert.ErrorContains(t, err, "channel closed")
}
