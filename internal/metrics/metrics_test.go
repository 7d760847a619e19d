package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/batchreactor/internal/dynamo"
	"github.com/san-kum/batchreactor/internal/kinetics"
	"github.com/san-kum/batchreactor/internal/reactor"
	"github.com/san-kum/batchreactor/internal/thermo"
)

func nitrogen(t *testing.T) (*thermo.Map, *reactor.Model, dynamo.State) {
	t.Helper()
	th, err := thermo.NewMap([]thermo.Species{
		thermo.ConstantCp("N2", 28.014, 29.1e3, 0, 191.61e3),
	})
	if err != nil {
		t.Fatal(err)
	}
	km, err := kinetics.NewMap(th, nil)
	if err != nil {
		t.Fatal(err)
	}

	s := thermo.State{T: 1000, P: thermo.PAtm}
	x := []float64{1}
	c, err := th.Concentrations(s, x)
	if err != nil {
		t.Fatal(err)
	}

	m := reactor.New(th, km)
	m.SetInitialTemperature(s.T)
	m.SetInitialPressure(s.P)
	m.SetInternalEnergy(th.MassInternalEnergy(s.T, x))
	return th, m, dynamo.State(c)
}

func TestEnergyDriftAtSetpoint(t *testing.T) {
	th, m, c := nitrogen(t)
	drift := NewEnergyDrift(m, th, m.InternalEnergy())

	drift.Observe(c, 0)
	if drift.Value() > 1e-6 {
		t.Errorf("expected negligible drift, got %e", drift.Value())
	}
	if drift.Failures() != 0 {
		t.Errorf("unexpected closure failures: %d", drift.Failures())
	}
}

func TestEnergyDriftCountsFailures(t *testing.T) {
	th, m, _ := nitrogen(t)
	drift := NewEnergyDrift(m, th, m.InternalEnergy())

	drift.Observe(dynamo.State{0}, 0)
	if drift.Failures() != 1 {
		t.Errorf("expected 1 failure, got %d", drift.Failures())
	}

	drift.Reset()
	if drift.Failures() != 0 || drift.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestObserversLeaveClosureCounterAlone(t *testing.T) {
	th, base, c := nitrogen(t)
	km, err := kinetics.NewMap(th, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := reactor.New(th, km, reactor.WithMaxClosureIterations(1), reactor.WithStrictClosure())
	m.SetInitialTemperature(base.InitialTemperature())
	m.SetInitialPressure(2 * base.InitialPressure())
	m.SetInternalEnergy(base.InternalEnergy())

	drift := NewEnergyDrift(m, th, m.InternalEnergy())
	peak := NewPeakTemperature(m)
	for i := 0; i < 3; i++ {
		drift.Observe(c, float64(i))
		peak.Observe(c, float64(i))
	}

	if n := m.NonConvergedClosures(); n != 0 {
		t.Errorf("observers recorded %d non-converged closures", n)
	}
	if drift.Failures() != 0 {
		t.Errorf("unexpected closure failures: %d", drift.Failures())
	}
	if peak.Value() <= 0 {
		t.Errorf("expected a peak temperature, got %f", peak.Value())
	}
}

func TestMassDrift(t *testing.T) {
	m := NewMassDrift([]float64{2, 32, 18})

	m.Observe(dynamo.State{2, 1, 0}, 0)
	if m.Value() != 0 {
		t.Errorf("expected zero drift on first sample, got %f", m.Value())
	}

	// 2 H2 + O2 => 2 H2O keeps the density
	m.Observe(dynamo.State{0, 0, 2}, 1)
	if m.Value() > 1e-12 {
		t.Errorf("expected conserved density, got drift %e", m.Value())
	}

	m.Observe(dynamo.State{1, 0, 2}, 2)
	if math.Abs(m.Value()-2.0/36.0) > 1e-12 {
		t.Errorf("expected drift %f, got %f", 2.0/36.0, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestPeakTemperature(t *testing.T) {
	_, m, c := nitrogen(t)
	peak := NewPeakTemperature(m)

	peak.Observe(c, 0)
	if math.Abs(peak.Value()-1000) > 1 {
		t.Errorf("expected peak near 1000 K, got %f", peak.Value())
	}

	peak.Reset()
	if peak.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestPositivity(t *testing.T) {
	p := NewPositivity(1e-12)

	if p.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %f", p.Value())
	}

	p.Observe(dynamo.State{1, 0}, 0)
	p.Observe(dynamo.State{1, -1e-6}, 1)
	if math.Abs(p.Value()-0.5) > 1e-12 {
		t.Errorf("expected 0.5, got %f", p.Value())
	}
}
