package spectrum

// ring is a fixed-size circular buffer of mono samples. It is not
// synchronized; the Analyser guards it.
type ring struct {
	buf  []float64
	size int
	w    int // write position
	len  int // current fill level
}

func newRing(size int) *ring {
	return &ring{
		buf:  make([]float64, size),
		size: size,
	}
}

// push appends one sample, overwriting the oldest when full.
func (r *ring) push(v float64) {
	r.buf[r.w] = v
	r.w = (r.w + 1) % r.size
	if r.len < r.size {
		r.len++
	}
}

// latest copies the most recent len(dst) samples into dst in chronological
// order. Missing history is zero-filled at the front.
func (r *ring) latest(dst []float64) {
	n := len(dst)
	if n > r.size {
		n = r.size
	}
	have := r.len
	if have > n {
		have = n
	}
	pad := len(dst) - have
	clear(dst[:pad])
	start := (r.w - have + r.size) % r.size
	for i := range have {
		dst[pad+i] = r.buf[(start+i)%r.size]
	}
}

func (r *ring) reset() {
	r.w = 0
	r.len = 0
	clear(r.buf)
}
