// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

// Package pool provides reusable byte buffers for worker read cycles.
package pool

import "sync"

// BytePool hands out fixed-size byte buffers backed by sync.Pool. Workers
// draw one buffer per drain pass and return it when the pass ends.
type BytePool struct {
	p    sync.Pool
	size int
}

// NewBytePool creates a pool of buffers of the given size.
func NewBytePool(size int) *BytePool {
	bp := &BytePool{size: size}
	bp.p.New = func() any {
		return make([]byte, size)
	}
	return bp
}

// GetBuffer returns a buffer from the pool.
func (b *BytePool) GetBuffer() []byte {
	return b.p.Get().([]byte)
}

// PutBuffer returns a buffer to the pool. Buffers with a capacity below the
// pool size are dropped; others are resliced to the pool size, so every
// buffer handed out has the same length.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) < b.size {
		return
	}
	b.p.Put(buf[:b.size])
}

// Size reports the buffer size this pool serves.
func (b *BytePool) Size() int { return b.size }
