package upload

import "io"

// countingReader reports the running byte count of an upload body.
type countingReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(percent int)
	last   int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.read += int64(n)
		pct := percent(c.read, c.total)
		if pct != c.last {
			c.last = pct
			c.report(pct)
		}
	}
	return n, err
}

func percent(read, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(read * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}
