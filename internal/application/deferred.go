package application

import (
	"sync"

	"github.com/bnema/locus-sync/internal/domain"
)

// DeferredChildren holds breakout records that arrived before their main
// session existed. One record is kept per locus URL; a newer one replaces it.
type DeferredChildren struct {
	mu      sync.Mutex
	records []*domain.Record
}

func NewDeferredChildren() *DeferredChildren {
	return &DeferredChildren{}
}

func (d *DeferredChildren) Add(record *domain.Record) {
	if record == nil {
		return
	}
	url := domain.NormalizeURL(record.URL)

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, held := range d.records {
		if domain.NormalizeURL(held.URL) == url {
			d.records[i] = record
			return
		}
	}
	d.records = append(d.records, record)
}

// Take removes and returns the first held record of a breakout group.
func (d *DeferredChildren) Take(groupURL string) *domain.Record {
	if groupURL == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, held := range d.records {
		if held.BreakoutGroupURL() == groupURL {
			d.records = append(d.records[:i], d.records[i+1:]...)
			return held
		}
	}
	return nil
}

// Retain drops every held record whose locus URL is not in keep.
func (d *DeferredChildren) Retain(keep map[string]struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.records[:0]
	for _, held := range d.records {
		if _, ok := keep[domain.NormalizeURL(held.URL)]; ok {
			kept = append(kept, held)
		}
	}
	clear(d.records[len(kept):])
	d.records = kept
}

func (d *DeferredChildren) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}
