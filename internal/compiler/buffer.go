package compiler

import (
	"bytes"
	"fmt"
)

// limitedBuffer collects process output up to a byte ceiling. Past the
// ceiling writes fail and the buffer is marked exceeded, so an
// oversized payload is detected instead of silently truncated.
type limitedBuffer struct {
	buf      bytes.Buffer
	limit    int64
	exceeded bool
}

func newLimitedBuffer(limit int64) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if int64(b.buf.Len())+int64(len(p)) > b.limit {
		b.exceeded = true
		return 0, fmt.Errorf("output limit of %d bytes exceeded", b.limit)
	}

	return b.buf.Write(p)
}

func (b *limitedBuffer) Exceeded() bool {
	return b.exceeded
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
