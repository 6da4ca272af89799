// File: pool/bytepool_test.go
// Author: momentics <momentics@gmail.com>

package pool_test

import (
	"testing"

	"github.com/momentics/hioload-lb/pool"
)

func TestBytePoolBufferSize(t *testing.T) {
	bp := pool.NewBytePool(1024)
	buf := bp.GetBuffer()
	if len(buf) != 1024 {
		t.Errorf("len = %d, want 1024", len(buf))
	}
	bp.PutBuffer(buf)
}

func TestBytePoolDropsForeignSizes(t *testing.T) {
	bp := pool.NewBytePool(1024)
	bp.PutBuffer(make([]byte, 16))
	if got := bp.GetBuffer(); len(got) != 1024 {
		t.Errorf("pool handed out a foreign buffer of len %d", len(got))
	}
}

func TestBytePoolRestoresTruncatedBuffers(t *testing.T) {
	bp := pool.NewBytePool(64)
	buf := bp.GetBuffer()
	bp.PutBuffer(buf[:3])
	if got := bp.GetBuffer(); len(got) != 64 {
		t.Errorf("len = %d after truncated return, want 64", len(got))
	}
}
