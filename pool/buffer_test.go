package pool

import (
	"bytes"
	"sync"
	"testing"
)

func TestAcquireBuffer_Empty(t *testing.T) {
	b := AcquireBuffer()
	b.WriteString("<ClinicalDocument/>")
	ReleaseBuffer(b)

	again := AcquireBuffer()
	defer ReleaseBuffer(again)
	if again.Len() != 0 {
		t.Errorf("Len() = %d; want 0", again.Len())
	}
}

func TestReleaseBuffer_Nil(t *testing.T) {
	ReleaseBuffer(nil) // Should not panic
}

func TestReleaseBuffer_Oversized(t *testing.T) {
	big := bytes.NewBuffer(make([]byte, 0, maxPooledBuffer+1))
	ReleaseBuffer(big) // dropped, not pooled

	b := AcquireBuffer()
	defer ReleaseBuffer(b)
	if b.Cap() > maxPooledBuffer {
		t.Errorf("Cap() = %d; oversized buffer was pooled", b.Cap())
	}
}

func TestBuffer_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := AcquireBuffer()
			defer ReleaseBuffer(b)
			b.WriteByte(byte(i))
			if b.Len() != 1 {
				t.Errorf("Len() = %d; want 1", b.Len())
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkAcquireBuffer(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := AcquireBuffer()
		buf.WriteString("<ClinicalDocument/>")
		ReleaseBuffer(buf)
	}
}
