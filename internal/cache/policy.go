package cache

import (
	"container/list"
	"fmt"
)

// PolicyType identifies an eviction policy.
type PolicyType string

const (
	// PolicyLRU evicts the least recently accessed entry first.
	// Every successful Get refreshes an entry's position.
	PolicyLRU PolicyType = "lru"

	// PolicyLFU evicts the entry with the lowest access count first.
	PolicyLFU PolicyType = "lfu"

	// PolicyFIFO evicts the oldest inserted entry first, ignoring access
	// recency entirely.
	PolicyFIFO PolicyType = "fifo"
)

// String returns the string representation of the policy type.
func (p PolicyType) String() string {
	return string(p)
}

// policy is the bookkeeping contract every eviction strategy implements.
// The cache tells the policy about reads, writes, and removals; the policy
// answers one question: which key goes next.
type policy interface {
	// OnGet records a read of the key.
	OnGet(key string)

	// OnPut records an insertion of the key.
	OnPut(key string)

	// Remove forgets the key without treating it as an eviction.
	Remove(key string)

	// Evict returns the next key to evict and true, or false when the
	// policy is tracking nothing.
	Evict() (string, bool)
}

// newPolicy creates the bookkeeping structure for the given policy type.
func newPolicy(t PolicyType) (policy, error) {
	switch t {
	case PolicyLRU:
		return newLRUPolicy(), nil
	case PolicyLFU:
		return newLFUPolicy(), nil
	case PolicyFIFO:
		return newFIFOPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", t)
	}
}

// lruPolicy tracks recency with a doubly-linked list. The front of the list
// is the most recently used key; eviction takes from the back.
type lruPolicy struct {
	order *list.List               // of string keys
	elems map[string]*list.Element // key -> list element
}

func newLRUPolicy() *lruPolicy {
	return &lruPolicy{
		order: list.New(),
		elems: make(map[string]*list.Element),
	}
}

func (p *lruPolicy) OnGet(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.MoveToFront(el)
	}
}

func (p *lruPolicy) OnPut(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.MoveToFront(el)
		return
	}
	p.elems[key] = p.order.PushFront(key)
}

func (p *lruPolicy) Remove(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.Remove(el)
		delete(p.elems, key)
	}
}

func (p *lruPolicy) Evict() (string, bool) {
	back := p.order.Back()
	if back == nil {
		return "", false
	}
	key := back.Value.(string)
	p.order.Remove(back)
	delete(p.elems, key)
	return key, true
}

// lfuPolicy tracks access frequency in per-frequency buckets. minFreq points
// at the lowest populated bucket so eviction never scans the whole table.
// Bucket order is preserved with a list so ties evict the oldest access.
type lfuPolicy struct {
	freqs   map[string]int           // key -> frequency
	buckets map[int]*list.List       // frequency -> keys in arrival order
	elems   map[string]*list.Element // key -> element in its bucket
	minFreq int
}

func newLFUPolicy() *lfuPolicy {
	return &lfuPolicy{
		freqs:   make(map[string]int),
		buckets: make(map[int]*list.List),
		elems:   make(map[string]*list.Element),
	}
}

func (p *lfuPolicy) OnGet(key string) {
	freq, ok := p.freqs[key]
	if !ok {
		return
	}
	p.bucketRemove(key, freq)
	p.bucketAdd(key, freq+1)
	p.freqs[key] = freq + 1
	if p.minFreq == freq {
		if b := p.buckets[freq]; b == nil || b.Len() == 0 {
			p.minFreq = freq + 1
		}
	}
}

func (p *lfuPolicy) OnPut(key string) {
	if _, ok := p.freqs[key]; ok {
		// Re-insertion of a live key counts as an access.
		p.OnGet(key)
		return
	}
	p.freqs[key] = 1
	p.bucketAdd(key, 1)
	p.minFreq = 1
}

func (p *lfuPolicy) Remove(key string) {
	freq, ok := p.freqs[key]
	if !ok {
		return
	}
	p.bucketRemove(key, freq)
	delete(p.freqs, key)
}

func (p *lfuPolicy) Evict() (string, bool) {
	if len(p.freqs) == 0 {
		return "", false
	}
	// minFreq may point at an emptied bucket after removals; advance it.
	for p.buckets[p.minFreq] == nil || p.buckets[p.minFreq].Len() == 0 {
		p.minFreq++
	}
	front := p.buckets[p.minFreq].Front()
	key := front.Value.(string)
	p.bucketRemove(key, p.minFreq)
	delete(p.freqs, key)
	return key, true
}

func (p *lfuPolicy) bucketAdd(key string, freq int) {
	b := p.buckets[freq]
	if b == nil {
		b = list.New()
		p.buckets[freq] = b
	}
	p.elems[key] = b.PushBack(key)
}

func (p *lfuPolicy) bucketRemove(key string, freq int) {
	if el, ok := p.elems[key]; ok {
		p.buckets[freq].Remove(el)
		delete(p.elems, key)
	}
	if b := p.buckets[freq]; b != nil && b.Len() == 0 {
		delete(p.buckets, freq)
	}
}

// fifoPolicy tracks insertion order only. Reads change nothing.
type fifoPolicy struct {
	order *list.List
	elems map[string]*list.Element
}

func newFIFOPolicy() *fifoPolicy {
	return &fifoPolicy{
		order: list.New(),
		elems: make(map[string]*list.Element),
	}
}

func (p *fifoPolicy) OnGet(string) {}

func (p *fifoPolicy) OnPut(key string) {
	if _, ok := p.elems[key]; ok {
		return
	}
	p.elems[key] = p.order.PushBack(key)
}

func (p *fifoPolicy) Remove(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.Remove(el)
		delete(p.elems, key)
	}
}

func (p *fifoPolicy) Evict() (string, bool) {
	front := p.order.Front()
	if front == nil {
		return "", false
	}
	key := front.Value.(string)
	p.order.Remove(front)
	delete(p.elems, key)
	return key, true
}
