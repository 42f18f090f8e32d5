package core

import "pkt.systems/mongoui/schema"

// bufferRecord is one open buffer. output is nil until the first successful
// run; it is the buffer's output binding.
type bufferRecord struct {
	id     schema.BufferID
	target schema.TargetName
	input  TextModel
	output TextModel
}

// dispose releases the host models attached to the record.
func (r *bufferRecord) dispose() {
	if r.input != nil {
		r.input.Dispose()
		r.input = nil
	}
	if r.output != nil {
		r.output.Dispose()
		r.output = nil
	}
}

// outputModel returns the output binding, or nil when there is none.
func (r *bufferRecord) outputModel() TextModel {
	if r == nil || r.output == nil {
		return nil
	}
	return r.output
}

// bufferStore is the single ordered arena of buffers. Order is insertion
// order; removal keeps the relative order of the rest.
type bufferStore struct {
	records []*bufferRecord
}

func newBufferStore() *bufferStore {
	return &bufferStore{}
}

func (s *bufferStore) add(r *bufferRecord) {
	s.records = append(s.records, r)
}

func (s *bufferStore) len() int {
	return len(s.records)
}

func (s *bufferStore) at(i int) *bufferRecord {
	if i < 0 || i >= len(s.records) {
		return nil
	}
	return s.records[i]
}

func (s *bufferStore) last() *bufferRecord {
	return s.at(len(s.records) - 1)
}

func (s *bufferStore) index(id schema.BufferID) int {
	for i, r := range s.records {
		if r.id == id {
			return i
		}
	}
	return -1
}

func (s *bufferStore) get(id schema.BufferID) *bufferRecord {
	return s.at(s.index(id))
}

// remove deletes the record and returns its former position.
func (s *bufferStore) remove(id schema.BufferID) (int, *bufferRecord) {
	idx := s.index(id)
	if idx < 0 {
		return -1, nil
	}
	r := s.records[idx]
	out := make([]*bufferRecord, 0, len(s.records)-1)
	out = append(out, s.records[:idx]...)
	out = append(out, s.records[idx+1:]...)
	s.records = out
	return idx, r
}

// clear empties the arena and returns the removed records.
func (s *bufferStore) clear() []*bufferRecord {
	removed := s.records
	s.records = nil
	return removed
}

func (s *bufferStore) outputs() int {
	n := 0
	for _, r := range s.records {
		if r.output != nil {
			n++
		}
	}
	return n
}
