package simloop

// p2Estimator implements the P-Square streaming quantile algorithm (Jain &
// Chlamtac, CACM 1985) for a single target quantile. It provides O(1)
// per-observation updates without storing the observation stream, which
// keeps metrics collection cheap even for very long simulations.
//
// Not safe for concurrent use; the loop owns it.
type p2Estimator struct {
	p     float64    // target quantile in [0, 1]
	q     [5]float64 // marker heights
	n     [5]int     // actual marker positions
	np    [5]float64 // desired marker positions
	dn    [5]float64 // desired position increments
	first [5]float64 // initial observations, before the markers exist
	count int
}

func newP2Estimator(p float64) *p2Estimator {
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return &p2Estimator{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

// observe feeds one observation into the estimator.
func (e *p2Estimator) observe(x float64) {
	e.count++

	if e.count <= 5 {
		e.first[e.count-1] = x
		if e.count == 5 {
			insertionSort(e.first[:])
			for i := 0; i < 5; i++ {
				e.q[i] = e.first[i]
				e.n[i] = i
			}
			e.np = [5]float64{0, 2 * e.p, 4 * e.p, 2 + 2*e.p, 4}
		}
		return
	}

	// Locate the cell k with q[k] <= x < q[k+1], extending the extremes.
	var k int
	switch {
	case x < e.q[0]:
		e.q[0] = x
		k = 0
	case x >= e.q[4]:
		e.q[4] = x
		k = 3
	default:
		for k = 0; k < 4; k++ {
			if e.q[k] <= x && x < e.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		e.n[i]++
	}
	for i := 0; i < 5; i++ {
		e.np[i] += e.dn[i]
	}

	// Adjust interior markers toward their desired positions.
	for i := 1; i < 4; i++ {
		d := e.np[i] - float64(e.n[i])
		if (d >= 1 && e.n[i+1]-e.n[i] > 1) || (d <= -1 && e.n[i-1]-e.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			if h := e.parabolic(i, sign); e.q[i-1] < h && h < e.q[i+1] {
				e.q[i] = h
			} else {
				e.q[i] = e.linear(i, sign)
			}
			e.n[i] += sign
		}
	}
}

// parabolic is the P² parabolic marker adjustment.
func (e *p2Estimator) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(e.n[i])
	lo := float64(e.n[i-1])
	hi := float64(e.n[i+1])
	a := (ni - lo + df) * (e.q[i+1] - e.q[i]) / (hi - ni)
	b := (hi - ni - df) * (e.q[i] - e.q[i-1]) / (ni - lo)
	return e.q[i] + df/(hi-lo)*(a+b)
}

// linear is the P² fallback linear marker adjustment.
func (e *p2Estimator) linear(i, d int) float64 {
	if d == 1 {
		return e.q[i] + (e.q[i+1]-e.q[i])/float64(e.n[i+1]-e.n[i])
	}
	return e.q[i] - (e.q[i]-e.q[i-1])/float64(e.n[i]-e.n[i-1])
}

// quantile returns the current estimate. With fewer than five observations
// it falls back to the exact order statistic over the buffered values.
func (e *p2Estimator) quantile() float64 {
	if e.count == 0 {
		return 0
	}
	if e.count < 5 {
		sorted := make([]float64, e.count)
		copy(sorted, e.first[:e.count])
		insertionSort(sorted)
		i := int(float64(e.count-1) * e.p)
		return sorted[i]
	}
	return e.q[2]
}

func insertionSort(s []float64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

// drainDepthDist tracks the distribution of microtask drain depths (entries
// executed per drain) with fixed P50/P95/P99 estimators plus exact count,
// sum, and max.
type drainDepthDist struct {
	p50   *p2Estimator
	p95   *p2Estimator
	p99   *p2Estimator
	sum   float64
	max   float64
	count int
}

func newDrainDepthDist() *drainDepthDist {
	return &drainDepthDist{
		p50: newP2Estimator(0.50),
		p95: newP2Estimator(0.95),
		p99: newP2Estimator(0.99),
	}
}

// observe records the depth of one completed drain.
func (d *drainDepthDist) observe(depth int) {
	x := float64(depth)
	d.count++
	d.sum += x
	if x > d.max {
		d.max = x
	}
	d.p50.observe(x)
	d.p95.observe(x)
	d.p99.observe(x)
}

// mean returns the arithmetic mean drain depth.
func (d *drainDepthDist) mean() float64 {
	if d.count == 0 {
		return 0
	}
	return d.sum / float64(d.count)
}
