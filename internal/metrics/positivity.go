package metrics

import "github.com/san-kum/batchreactor/internal/dynamo"

// Positivity is the fraction of observed states whose concentrations are all
// above -threshold. Integrators may undershoot zero for trace species.
type Positivity struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewPositivity(threshold float64) *Positivity {
	return &Positivity{
		name:      "positivity",
		threshold: threshold,
	}
}

func (p *Positivity) Name() string {
	return p.name
}

func (p *Positivity) Observe(x dynamo.State, t float64) {
	p.samples++
	for _, val := range x {
		if val < -p.threshold {
			p.violations++
			break
		}
	}
}

func (p *Positivity) Value() float64 {
	if p.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(p.violations)/float64(p.samples)
}

func (p *Positivity) Reset() {
	p.violations = 0
	p.samples = 0
}
