package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type collectingSink struct {
	mu      sync.Mutex
	batches [][]AuditLogEntry
	err     error
}

func (s *collectingSink) Write(_ context.Context, batch []AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return s.err
}

func (s *collectingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *collectingSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func entry(path string) AuditLogEntry {
	return AuditLogEntry{Method: "POST", Path: path, StatusCode: 201}
}

func TestAuditManager_FlushesFullBatches(t *testing.T) {
	sink := &collectingSink{}
	m := NewAuditManager(sink, zap.NewNop(), 2, 3, time.Hour)
	m.Start(context.Background())

	for i := 0; i < 6; i++ {
		m.LogEntry(context.Background(), entry("/api/orders"))
	}

	assert.Eventually(t, func() bool { return sink.total() == 6 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, sink.batchCount())

	m.Shutdown(context.Background())
}

func TestAuditManager_FlushesOnTimeout(t *testing.T) {
	sink := &collectingSink{}
	m := NewAuditManager(sink, zap.NewNop(), 1, 100, 20*time.Millisecond)
	m.Start(context.Background())
	defer m.Shutdown(context.Background())

	m.LogEntry(context.Background(), entry("/api/add"))

	assert.Eventually(t, func() bool { return sink.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAuditManager_ShutdownDrainsQueue(t *testing.T) {
	sink := &collectingSink{}
	m := NewAuditManager(sink, zap.NewNop(), 1, 100, time.Hour)
	m.Start(context.Background())

	for i := 0; i < 5; i++ {
		m.LogEntry(context.Background(), entry("/api/orders/1"))
	}
	m.Shutdown(context.Background())

	assert.Equal(t, 5, sink.total())

	// Entries after shutdown bypass the queue.
	m.LogEntry(context.Background(), entry("/api/orders/2"))
	assert.Equal(t, 6, sink.total())
}

func TestAuditManager_WritesDirectlyWhenNotStarted(t *testing.T) {
	sink := &collectingSink{}
	m := NewAuditManager(sink, zap.NewNop(), 1, 1, time.Hour)

	for i := 0; i < 10; i++ {
		m.LogEntry(context.Background(), entry("/api/orders"))
	}

	assert.Equal(t, 10, sink.total())
}

func TestAuditManager_StopsWithContext(t *testing.T) {
	sink := &collectingSink{}
	m := NewAuditManager(sink, zap.NewNop(), 1, 100, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	m.LogEntry(context.Background(), entry("/api/orders"))
	cancel()

	assert.Eventually(t, func() bool { return sink.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAuditManager_SinkErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sink := &collectingSink{err: errors.New("disk full")}
	m := NewAuditManager(sink, zap.New(core), 1, 1, time.Hour)

	m.LogEntry(context.Background(), entry("/api/orders"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to write audit batch", logs.All()[0].Message)
}

func TestZapAuditSink_Write(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewZapAuditSink(zap.New(core))

	err := sink.Write(context.Background(), []AuditLogEntry{
		{Method: "DELETE", Route: "/api/orders/{id}", Path: "/api/orders/7", StatusCode: 200, OrderID: "7"},
	})
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "DELETE", fields["method"])
	assert.Equal(t, "7", fields["order_id"])
	assert.Equal(t, int64(200), fields["status_code"])
}

func TestTruncate(t *testing.T) {
	long := make([]byte, maxAuditBodyBytes+10)
	for i := range long {
		long[i] = 'a'
	}

	assert.Equal(t, `{"a":1}`, truncate([]byte("{\"a\":1}\n")))
	assert.Len(t, truncate(long), maxAuditBodyBytes+len("...(truncated)"))
}
