package core

import "pkt.systems/mongoui/schema"

// idSequence issues buffer ids. Zero is reserved for "no buffer".
type idSequence struct {
	last uint64
}

func (s *idSequence) next() schema.BufferID {
	s.last++
	return schema.BufferID(s.last)
}
