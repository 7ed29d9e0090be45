package entities

// Segment is one buffer of a received data chain.
//
// A single receive callback may hand over several queued segments linked
// through Next. TotLen is the byte count of this segment plus every segment
// after it, so the head's TotLen is the size of the whole chain and the last
// segment is the one whose Len equals its TotLen.
type Segment struct {
	// Payload holds this segment's bytes.
	Payload []byte

	// Next is the following segment, or nil for the last one.
	Next *Segment

	// Handle is an opaque allocator reference owned by the stack that
	// produced the chain. Only that stack's FreeChain interprets it.
	Handle any

	// TotLen is len(Payload) plus the TotLen of Next.
	TotLen int
}

// Len returns the number of bytes held by this segment alone.
func (s *Segment) Len() int {
	return len(s.Payload)
}

// IsLast reports whether no bytes follow this segment.
func (s *Segment) IsLast() bool {
	return s.Len() == s.TotLen
}

// Count returns the number of segments in the chain starting at s.
func (s *Segment) Count() int {
	n := 0
	for seg := s; seg != nil; seg = seg.Next {
		n++
	}
	return n
}

// NewChain links the payloads into a chain, filling in TotLen for each
// segment. It returns nil when no payloads are given.
func NewChain(payloads ...[]byte) *Segment {
	var head *Segment
	total := 0
	for i := len(payloads) - 1; i >= 0; i-- {
		total += len(payloads[i])
		head = &Segment{
			Payload: payloads[i],
			Next:    head,
			TotLen:  total,
		}
	}
	return head
}
