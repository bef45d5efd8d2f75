package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

var idSeq uint64

// GenID generates a unique message ID using the current UTC nanosecond
// timestamp and an atomic sequence number.
func GenID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("msg-%d-%d", n, s)
}

// GenKey generates a sortable child key: zero-padded nanosecond timestamp
// plus a sequence suffix so keys created in one process sort in insertion
// order even when timestamps collide.
func GenKey() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("%020d-%06d", n, s)
}
