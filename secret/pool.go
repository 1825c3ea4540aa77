// Package secret provides a pooled allocator for secret-grade byte
// buffers. Buffers rented from the pool are zeroed on release so that
// cryptographic material does not linger on the heap longer than the
// scope that requested it.
package secret

import "sync"

// bucket sizes the pool rounds allocations up to, so the free list can be
// reused across callers that request similar-sized secrets (digests,
// nonces, HMAC keys, canonical-JSON scratch space).
var bucketSizes = []int{32, 64, 128, 256, 512, 1024, 4096}

func bucketFor(size int) int {
	for _, b := range bucketSizes {
		if size <= b {
			return b
		}
	}
	return size
}

// Pool is a bucketed free list of byte slices. The zero value is not
// usable; use NewPool or the package-level Shared instance.
type Pool struct {
	mu   sync.Mutex
	free map[int][][]byte
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{free: make(map[int][][]byte)}
}

// Shared is the default pool used when callers don't need isolation.
var Shared = NewPool()

// Buffer is an owning handle to a pooled byte region of exactly the
// requested length. The zero value is not usable; obtain one from
// Pool.Rent. A Buffer must not be copied after Bytes has been taken,
// since Release zeroes the backing array in place.
type Buffer struct {
	pool     *Pool
	backing  []byte // full bucket-sized allocation
	view     []byte // backing[:requestedLen], the user-visible slice
	released bool
}

// Rent returns a Buffer whose Bytes() is exactly size bytes long. The
// pool may over-allocate internally (bucketed sizes) but never exposes
// more than size bytes to the caller.
func (p *Pool) Rent(size int) *Buffer {
	bucket := bucketFor(size)

	p.mu.Lock()
	var backing []byte
	if stack := p.free[bucket]; len(stack) > 0 {
		backing = stack[len(stack)-1]
		p.free[bucket] = stack[:len(stack)-1]
	}
	p.mu.Unlock()

	if backing == nil {
		backing = make([]byte, bucket)
	}

	return &Buffer{
		pool:    p,
		backing: backing,
		view:    backing[:size],
	}
}

// Rent allocates size bytes from Shared.
func Rent(size int) *Buffer {
	return Shared.Rent(size)
}

// Bytes returns the requested-length view into the pooled region. The
// slice is only valid until Release is called; callers that need the
// data to outlive the buffer's scope must copy it explicitly.
func (b *Buffer) Bytes() []byte {
	if b.released {
		panic("secret: use of released buffer")
	}
	return b.view
}

// Len returns the requested length of the buffer.
func (b *Buffer) Len() int {
	return len(b.view)
}

// Release zeroes the entire backing allocation and returns it to the
// pool's free list. Release is idempotent; calling it more than once is
// a no-op after the first call.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	for i := range b.backing {
		b.backing[i] = 0
	}
	bucket := len(b.backing)

	b.pool.mu.Lock()
	b.pool.free[bucket] = append(b.pool.free[bucket], b.backing)
	b.pool.mu.Unlock()

	b.released = true
	b.view = nil
	b.backing = nil
}
