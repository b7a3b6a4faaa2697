package logger

// RingBuffer is a fixed-capacity circular buffer of log lines.
type RingBuffer struct {
	lines     []string
	capacity  int
	head      int // Next write position
	size      int
	totalSeen int // Lines added since the last ResetSeen
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	capacity = max(capacity, 1)

	return &RingBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Add appends a line, overwriting the oldest one when full.
func (rb *RingBuffer) Add(line string) {
	rb.lines[rb.head] = line
	rb.head = (rb.head + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}

	rb.totalSeen++
}

// Lines returns the buffered lines oldest first.
func (rb *RingBuffer) Lines() []string {
	if rb.size == 0 {
		return nil
	}

	result := make([]string, rb.size)
	start := (rb.head - rb.size + rb.capacity) % rb.capacity

	for i := range rb.size {
		result[i] = rb.lines[(start+i)%rb.capacity]
	}

	return result
}

// Capacity returns the maximum number of lines kept.
func (rb *RingBuffer) Capacity() int { return rb.capacity }

// TotalSeen returns the number of lines added since the last reset.
func (rb *RingBuffer) TotalSeen() int { return rb.totalSeen }

// ResetSeen restarts the counter from the lines still buffered.
func (rb *RingBuffer) ResetSeen() { rb.totalSeen = rb.size }
