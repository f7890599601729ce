// Package pool provides sync.Pool wrappers for reducing GC pressure.
package pool

import (
	"bytes"
	"sync"
)

// maxPooledBuffer is the largest buffer capacity returned to the pool.
// C-CDA documents are commonly a few hundred kilobytes; larger buffers are
// left to the garbage collector.
const maxPooledBuffer = 1 << 20

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 64<<10))
	},
}

// AcquireBuffer gets an empty buffer from the pool.
// Call ReleaseBuffer when done to return it.
func AcquireBuffer() *bytes.Buffer {
	b := bufferPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns b to the pool. The caller must not use b afterwards.
func ReleaseBuffer(b *bytes.Buffer) {
	if b == nil {
		return
	}
	// Don't return oversized buffers
	if b.Cap() <= maxPooledBuffer {
		bufferPool.Put(b)
	}
}
