package kafka

import (
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
)

type partitionKey struct {
	topic     string
	partition int32
}

type partitionOffsets struct {
	// inflight holds offsets in the order they were handed out.
	inflight []int64
	done     map[int64]*kgo.Record
}

// offsetTracker decides which record may be committed when acks arrive out
// of order. A partition's commit point only advances across a contiguous
// run of acked records, so an unfinished record is never skipped.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[partitionKey]*partitionOffsets
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[partitionKey]*partitionOffsets)}
}

// track registers a record as handed out.
func (t *offsetTracker) track(rec *kgo.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := partitionKey{rec.Topic, rec.Partition}
	p, ok := t.partitions[key]
	if !ok {
		p = &partitionOffsets{done: make(map[int64]*kgo.Record)}
		t.partitions[key] = p
	}
	p.inflight = append(p.inflight, rec.Offset)
}

// done marks a record as finished and returns the last record of the
// contiguous finished prefix, or nil if the commit point did not move.
func (t *offsetTracker) done(rec *kgo.Record) *kgo.Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.partitions[partitionKey{rec.Topic, rec.Partition}]
	if !ok || len(p.inflight) == 0 || rec.Offset < p.inflight[0] {
		return nil
	}
	p.done[rec.Offset] = rec

	var commit *kgo.Record
	for len(p.inflight) > 0 {
		r, finished := p.done[p.inflight[0]]
		if !finished {
			break
		}
		delete(p.done, p.inflight[0])
		p.inflight = p.inflight[1:]
		commit = r
	}
	return commit
}

// forget drops state for partitions this consumer no longer owns.
func (t *offsetTracker) forget(revoked map[string][]int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for topic, partitions := range revoked {
		for _, partition := range partitions {
			delete(t.partitions, partitionKey{topic, partition})
		}
	}
}

// owns reports whether the tracker still follows the record's partition.
func (t *offsetTracker) owns(rec *kgo.Record) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.partitions[partitionKey{rec.Topic, rec.Partition}]
	return ok
}
