package buffer

import (
	"math"
	"sync"
)

// lruKNode is the replacer frame record: an ordered history of up to k
// recent access timestamps (oldest first) and an evictable flag.
type lruKNode struct {
	history   []uint64
	evictable bool
}

// LRUKReplacer implements the K-distance eviction policy: a frame's
// k-distance is the elapsed time since its Kth most recent access, or
// +Inf if it has fewer than k recorded accesses. Evict picks the frame
// with the largest k-distance, breaking ties by the oldest retained
// timestamp (plain LRU among the +Inf frames). It is a monitor: every
// public method takes the same exclusive lock.
//
// Grounded on bustub's lru_k_replacer.cpp: RecordAccess trims history to
// k entries from the front, Evict scans every evictable frame once.
type LRUKReplacer struct {
	mu sync.Mutex

	replacerSize int32
	k            int
	currentTS    uint64
	curSize      int
	nodes        map[int32]*lruKNode
}

var _ Replacer = &LRUKReplacer{}

// NewLRUKReplacer builds a replacer tracking up to numFrames frames, each
// remembering up to k recent accesses.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	return &LRUKReplacer{
		replacerSize: int32(numFrames),
		k:            k,
		nodes:        make(map[int32]*lruKNode),
	}
}

// RecordAccess appends the current timestamp to frameID's history,
// creating a non-evictable record if frameID is unseen. Frame ids at or
// beyond the replacer's size are rejected silently.
func (r *LRUKReplacer) RecordAccess(frameID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frameID >= r.replacerSize {
		return
	}

	r.currentTS++

	n, ok := r.nodes[frameID]
	if !ok {
		n = &lruKNode{}
		r.nodes[frameID] = n
	}

	n.history = append(n.history, r.currentTS)
	if len(n.history) > r.k {
		n.history = n.history[1:]
	}
}

// SetEvictable toggles frameID's evictable flag, maintaining Size().
func (r *LRUKReplacer) SetEvictable(frameID int32, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return
	}

	if n.evictable && !evictable {
		r.curSize--
	} else if !n.evictable && evictable {
		r.curSize++
	}
	n.evictable = evictable
}

// Remove drops an evictable frame's record. Non-evictable frames are left
// in place: callers must mark a frame evictable before removing it.
func (r *LRUKReplacer) Remove(frameID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok || !n.evictable {
		return
	}

	delete(r.nodes, frameID)
	r.curSize--
}

// Evict selects and removes the victim with the largest k-distance,
// breaking ties by the smallest oldest-retained timestamp. Returns
// ok=false if no evictable frame exists.
func (r *LRUKReplacer) Evict() (int32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.curSize == 0 {
		return 0, false
	}

	var victim int32
	found := false
	maxDistance := uint64(0)
	maxIsInf := false
	earliest := uint64(math.MaxUint64)

	for fid, n := range r.nodes {
		if !n.evictable {
			continue
		}

		isInf := len(n.history) < r.k
		var distance uint64
		oldest := n.history[0]
		if !isInf {
			distance = r.currentTS - oldest
		}

		better := false
		switch {
		case !found:
			better = true
		case isInf && !maxIsInf:
			better = true
		case isInf == maxIsInf:
			if isInf {
				better = oldest < earliest
			} else {
				better = distance > maxDistance || (distance == maxDistance && oldest < earliest)
			}
		}

		if better {
			found = true
			victim = fid
			maxIsInf = isInf
			maxDistance = distance
			earliest = oldest
		}
	}

	if !found {
		return 0, false
	}

	delete(r.nodes, victim)
	r.curSize--
	return victim, true
}

// Size returns the count of currently evictable frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.curSize
}
