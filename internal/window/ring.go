package window

// Ring is a single-reader single-writer FIFO of samples owned by one
// goroutine. Reads copy into caller buffers and never allocate; Write grows
// the buffer only if the configured capacity is exceeded.
type Ring struct {
	data     []float64
	capacity int
	size     int
	readPos  int
	writePos int
}

// NewRing creates a ring with the specified capacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		data:     make([]float64, capacity),
		capacity: capacity,
	}
}

// Write appends samples, growing if needed.
func (b *Ring) Write(samples []float64) {
	needed := len(samples)
	if needed == 0 {
		return
	}
	if b.size+needed > b.capacity {
		b.grow(b.size + needed)
	}
	for _, s := range samples {
		b.data[b.writePos] = s
		b.writePos = (b.writePos + 1) % b.capacity
	}
	b.size += needed
}

// WriteZeros appends n zero samples.
func (b *Ring) WriteZeros(n int) {
	if n <= 0 {
		return
	}
	if b.size+n > b.capacity {
		b.grow(b.size + n)
	}
	for range n {
		b.data[b.writePos] = 0
		b.writePos = (b.writePos + 1) % b.capacity
	}
	b.size += n
}

// PeekInto copies up to len(dst) samples without consuming them and
// returns the count copied.
func (b *Ring) PeekInto(dst []float64) int {
	n := min(len(dst), b.size)
	pos := b.readPos
	for i := range n {
		dst[i] = b.data[pos]
		pos = (pos + 1) % b.capacity
	}
	return n
}

// ReadInto consumes up to len(dst) samples into dst and returns the count.
func (b *Ring) ReadInto(dst []float64) int {
	n := b.PeekInto(dst)
	b.Discard(n)
	return n
}

// Discard drops up to n samples from the front.
func (b *Ring) Discard(n int) {
	n = min(n, b.size)
	b.readPos = (b.readPos + n) % b.capacity
	b.size -= n
}

// Available returns the number of samples buffered.
func (b *Ring) Available() int { return b.size }

// Capacity returns the current capacity.
func (b *Ring) Capacity() int { return b.capacity }

// Clear drops every sample.
func (b *Ring) Clear() {
	b.size = 0
	b.readPos = 0
	b.writePos = 0
}

// grow increases the buffer capacity to at least minCapacity.
func (b *Ring) grow(minCapacity int) {
	newCapacity := b.capacity
	for newCapacity < minCapacity {
		newCapacity *= 2
	}
	newData := make([]float64, newCapacity)
	if b.size > 0 {
		if b.readPos < b.writePos {
			copy(newData, b.data[b.readPos:b.writePos])
		} else {
			n1 := copy(newData, b.data[b.readPos:])
			copy(newData[n1:], b.data[:b.writePos])
		}
	}
	b.data = newData
	b.capacity = newCapacity
	b.readPos = 0
	b.writePos = b.size % newCapacity
}
