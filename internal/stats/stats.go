// Package stats tracks relay-wide counters and gauges for the internal
// operator endpoint, generalizing the teacher's signaling-stats package
// from a two-transport call relay to this world's single websocket
// transport, session/map/train gauges, and move-rate-limit accounting.
package stats

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var authLatencyBoundariesMs = []int64{5, 10, 25, 50, 100, 200, 500, 1000, 2000, 5000, 10000}

// Snapshot is a point-in-time view of relay stats.
type Snapshot struct {
	TimestampMs int64               `json:"timestampMs"`
	Gauges      SnapshotGauges      `json:"gauges"`
	Counters    SnapshotCounters    `json:"counters"`
	Messages    SnapshotMessages    `json:"messages"`
	AuthLatency SnapshotAuthLatency `json:"authLatency"`
	Disconnects map[string]int64    `json:"disconnects"`
	Runtime     SnapshotRuntime     `json:"runtime"`
}

type SnapshotGauges struct {
	ActiveSessions int64 `json:"activeSessions"`
	ActiveMaps     int64 `json:"activeMaps"`
	ActiveTrains   int64 `json:"activeTrains"`
}

type SnapshotCounters struct {
	ConnectionAttempts int64 `json:"connectionAttempts"`
	ConnectionSuccess  int64 `json:"connectionSuccess"`
	ConnectionFailures int64 `json:"connectionFailures"`
	SendQueueDropTotal int64 `json:"sendQueueDropTotal"`
	MovesAccepted      int64 `json:"movesAccepted"`
	MovesRateLimited   int64 `json:"movesRateLimited"`
	MovesBlocked       int64 `json:"movesBlocked"`
}

type SnapshotMessages struct {
	RxTotal  int64            `json:"rxTotal"`
	TxTotal  int64            `json:"txTotal"`
	RxByType map[string]int64 `json:"rxByType"`
	TxByType map[string]int64 `json:"txByType"`
}

type SnapshotAuthLatency struct {
	BoundariesMs []int64 `json:"boundariesMs"`
	BucketCounts []int64 `json:"bucketCounts"`
	Total        int64   `json:"total"`
	SumMs        int64   `json:"sumMs"`
}

type SnapshotRuntime struct {
	Goroutines   int    `json:"goroutines"`
	HeapAlloc    uint64 `json:"heapAlloc"`
	HeapInuse    uint64 `json:"heapInuse"`
	HeapObjects  uint64 `json:"heapObjects"`
	NumGC        uint32 `json:"numGc"`
	PauseTotalNs uint64 `json:"pauseTotalNs"`
	LastPauseNs  uint64 `json:"lastPauseNs"`
}

type counterMap struct {
	m sync.Map
}

func normalizeKey(key string) string {
	if key == "" {
		return "unknown"
	}
	return key
}

func (c *counterMap) Inc(key string) {
	k := normalizeKey(key)
	if v, ok := c.m.Load(k); ok {
		v.(*atomic.Int64).Add(1)
		return
	}
	counter := &atomic.Int64{}
	actual, _ := c.m.LoadOrStore(k, counter)
	actual.(*atomic.Int64).Add(1)
}

func (c *counterMap) Snapshot() map[string]int64 {
	result := map[string]int64{}
	c.m.Range(func(key, value any) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}
		counter, ok := value.(*atomic.Int64)
		if !ok {
			return true
		}
		result[k] = counter.Load()
		return true
	})
	return result
}

var (
	connectionAttempts atomic.Int64
	connectionSuccess  atomic.Int64
	connectionFailures atomic.Int64

	activeSessions atomic.Int64
	activeMaps     atomic.Int64
	activeTrains   atomic.Int64

	sendQueueDropTotal atomic.Int64

	movesAccepted    atomic.Int64
	movesRateLimited atomic.Int64
	movesBlocked     atomic.Int64

	messagesRXTotal  atomic.Int64
	messagesTXTotal  atomic.Int64
	messagesRXByType counterMap
	messagesTXByType counterMap

	disconnectsByReason counterMap

	authLatencyTotal   atomic.Int64
	authLatencySumMs   atomic.Int64
	authLatencyBuckets []atomic.Int64
)

func init() {
	authLatencyBuckets = make([]atomic.Int64, len(authLatencyBoundariesMs)+1)
}

func IncConnectionAttempt() { connectionAttempts.Add(1) }
func IncConnectionSuccess() { connectionSuccess.Add(1) }
func IncConnectionFailure() { connectionFailures.Add(1) }

func AddActiveSessions(delta int64) { activeSessions.Add(delta) }
func SetActiveSessions(v int64)     { activeSessions.Store(v) }
func SetActiveMaps(v int64)         { activeMaps.Store(v) }
func SetActiveTrains(v int64)       { activeTrains.Store(v) }

func IncSendQueueDrop() { sendQueueDropTotal.Add(1) }

func IncMoveAccepted()    { movesAccepted.Add(1) }
func IncMoveRateLimited() { movesRateLimited.Add(1) }
func IncMoveBlocked()     { movesBlocked.Add(1) }

func IncMessageRX(messageType string) {
	messagesRXTotal.Add(1)
	messagesRXByType.Inc(messageType)
}

func IncMessageTX(messageType string) {
	messagesTXTotal.Add(1)
	messagesTXByType.Inc(messageType)
}

func IncDisconnect(reason string) {
	disconnectsByReason.Inc(reason)
}

func RecordAuthLatency(duration time.Duration) {
	ms := duration.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	authLatencyTotal.Add(1)
	authLatencySumMs.Add(ms)

	bucketIndex := len(authLatencyBoundariesMs)
	for i, boundary := range authLatencyBoundariesMs {
		if ms <= boundary {
			bucketIndex = i
			break
		}
	}
	authLatencyBuckets[bucketIndex].Add(1)
}

func SnapshotNow() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	lastPause := uint64(0)
	if mem.NumGC > 0 {
		idx := (mem.NumGC - 1) % uint32(len(mem.PauseNs))
		lastPause = mem.PauseNs[idx]
	}

	bucketCounts := make([]int64, len(authLatencyBuckets))
	for i := range authLatencyBuckets {
		bucketCounts[i] = authLatencyBuckets[i].Load()
	}

	rx := messagesRXByType.Snapshot()
	tx := messagesTXByType.Snapshot()
	disconnects := disconnectsByReason.Snapshot()

	return Snapshot{
		TimestampMs: time.Now().UnixMilli(),
		Gauges: SnapshotGauges{
			ActiveSessions: activeSessions.Load(),
			ActiveMaps:     activeMaps.Load(),
			ActiveTrains:   activeTrains.Load(),
		},
		Counters: SnapshotCounters{
			ConnectionAttempts: connectionAttempts.Load(),
			ConnectionSuccess:  connectionSuccess.Load(),
			ConnectionFailures: connectionFailures.Load(),
			SendQueueDropTotal: sendQueueDropTotal.Load(),
			MovesAccepted:      movesAccepted.Load(),
			MovesRateLimited:   movesRateLimited.Load(),
			MovesBlocked:       movesBlocked.Load(),
		},
		Messages: SnapshotMessages{
			RxTotal:  messagesRXTotal.Load(),
			TxTotal:  messagesTXTotal.Load(),
			RxByType: rx,
			TxByType: tx,
		},
		AuthLatency: SnapshotAuthLatency{
			BoundariesMs: append([]int64(nil), authLatencyBoundariesMs...),
			BucketCounts: bucketCounts,
			Total:        authLatencyTotal.Load(),
			SumMs:        authLatencySumMs.Load(),
		},
		Disconnects: disconnects,
		Runtime: SnapshotRuntime{
			Goroutines:   runtime.NumGoroutine(),
			HeapAlloc:    mem.HeapAlloc,
			HeapInuse:    mem.HeapInuse,
			HeapObjects:  mem.HeapObjects,
			NumGC:        mem.NumGC,
			PauseTotalNs: mem.PauseTotalNs,
			LastPauseNs:  lastPause,
		},
	}
}
