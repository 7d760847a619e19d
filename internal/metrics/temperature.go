package metrics

import (
	"math"

	"github.com/san-kum/batchreactor/internal/dynamo"
)

type PeakTemperature struct {
	name   string
	closer Closer
	peak   float64
}

func NewPeakTemperature(closer Closer) *PeakTemperature {
	return &PeakTemperature{
		name:   "peak_temperature",
		closer: closer,
	}
}

func (p *PeakTemperature) Name() string { return p.name }

func (p *PeakTemperature) Observe(x dynamo.State, t float64) {
	cs, err := p.closer.Closure(x)
	if err != nil {
		return
	}
	p.peak = math.Max(p.peak, cs.State.T)
}

func (p *PeakTemperature) Value() float64 {
	return p.peak
}

func (p *PeakTemperature) Reset() {
	p.peak = 0
}
