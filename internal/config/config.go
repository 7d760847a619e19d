package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/san-kum/batchreactor/internal/dynamo"
	"github.com/san-kum/batchreactor/internal/kinetics"
	"github.com/san-kum/batchreactor/internal/reactor"
	"github.com/san-kum/batchreactor/internal/thermo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIntegrator = "rk4"
	DefaultDt         = 1e-5
	DefaultDuration   = 0.01
	DefaultTolerance  = 1e-6
)

var ErrInvalidCase = errors.New("config: invalid case")

// Case is a complete batch reactor problem: mixture, mechanism, initial
// state and solver settings. Energies are per kmol, SI otherwise.
type Case struct {
	Name      string           `yaml:"name"`
	Species   []SpeciesConfig  `yaml:"species"`
	Reactions []ReactionConfig `yaml:"reactions,omitempty"`
	Initial   InitialConfig    `yaml:"initial"`
	Solver    SolverConfig     `yaml:"solver"`
}

// SpeciesConfig describes a species either by NASA polynomials or, when
// NASA is nil, by a constant heat capacity.
type SpeciesConfig struct {
	Name            string      `yaml:"name"`
	MolecularWeight float64     `yaml:"mw"`
	Cp              float64     `yaml:"cp,omitempty"`
	H298            float64     `yaml:"h298,omitempty"`
	S298            float64     `yaml:"s298,omitempty"`
	NASA            *NASAConfig `yaml:"nasa,omitempty"`
}

type NASAConfig struct {
	TLow  float64   `yaml:"t_low"`
	TMid  float64   `yaml:"t_mid"`
	THigh float64   `yaml:"t_high"`
	Low   []float64 `yaml:"low"`
	High  []float64 `yaml:"high"`
}

type ArrheniusConfig struct {
	A    float64 `yaml:"a"`
	Beta float64 `yaml:"beta,omitempty"`
	Ea   float64 `yaml:"ea,omitempty"`
}

type ReactionConfig struct {
	Equation        string             `yaml:"equation"`
	Reactants       map[string]float64 `yaml:"reactants"`
	Products        map[string]float64 `yaml:"products"`
	ArrheniusConfig `yaml:",inline"`
	Reversible      bool               `yaml:"reversible,omitempty"`
	Reverse         *ArrheniusConfig   `yaml:"reverse,omitempty"`
	ThirdBody       bool               `yaml:"third_body,omitempty"`
	Efficiencies    map[string]float64 `yaml:"efficiencies,omitempty"`
}

type InitialConfig struct {
	Temperature   float64            `yaml:"temperature"`
	Pressure      float64            `yaml:"pressure"`
	MoleFractions map[string]float64 `yaml:"mole_fractions"`
}

type SolverConfig struct {
	Integrator           string  `yaml:"integrator"`
	Dt                   float64 `yaml:"dt"`
	Duration             float64 `yaml:"duration"`
	Adaptive             bool    `yaml:"adaptive,omitempty"`
	Tolerance            float64 `yaml:"tolerance,omitempty"`
	MaxDt                float64 `yaml:"max_dt,omitempty"`
	MinDt                float64 `yaml:"min_dt,omitempty"`
	MaxClosureIterations int     `yaml:"max_closure_iterations,omitempty"`
	ClosureTolerance     float64 `yaml:"closure_tolerance,omitempty"`
	StrictClosure        bool    `yaml:"strict_closure,omitempty"`
}

func DefaultCase() *Case {
	return isomerization()
}

func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := &Case{Solver: SolverConfig{
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Tolerance:  DefaultTolerance,
	}}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Case) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Encode writes c as YAML.
func Encode(w io.Writer, c *Case) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCase, fmt.Sprintf(format, args...))
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

func (c *Case) Validate() error {
	if len(c.Species) == 0 {
		return invalid("no species")
	}
	known := make(map[string]bool, len(c.Species))
	for _, s := range c.Species {
		if known[s.Name] {
			return invalid("duplicate species %q", s.Name)
		}
		known[s.Name] = true
		if s.NASA != nil && (len(s.NASA.Low) != 7 || len(s.NASA.High) != 7) {
			return invalid("species %q: nasa polynomials need 7 coefficients", s.Name)
		}
	}

	for _, r := range c.Reactions {
		for _, side := range []map[string]float64{r.Reactants, r.Products, r.Efficiencies} {
			for name := range side {
				if !known[name] {
					return invalid("reaction %q: unknown species %q", r.Equation, name)
				}
			}
		}
	}

	if !positive(c.Initial.Temperature) {
		return invalid("initial temperature must be positive, got %g", c.Initial.Temperature)
	}
	if !positive(c.Initial.Pressure) {
		return invalid("initial pressure must be positive, got %g", c.Initial.Pressure)
	}
	sum := 0.0
	for name, x := range c.Initial.MoleFractions {
		if !known[name] {
			return invalid("initial mole fraction for unknown species %q", name)
		}
		if x < 0 {
			return invalid("negative mole fraction for %q", name)
		}
		sum += x
	}
	if !(sum > 0) {
		return invalid("initial mole fractions sum to zero")
	}

	if !positive(c.Solver.Dt) {
		return invalid("dt must be positive, got %g", c.Solver.Dt)
	}
	if !positive(c.Solver.Duration) {
		return invalid("duration must be positive, got %g", c.Solver.Duration)
	}
	if c.Solver.Adaptive && !positive(c.Solver.Tolerance) {
		return invalid("tolerance must be positive for adaptive stepping")
	}
	if c.Solver.MaxClosureIterations < 0 || c.Solver.ClosureTolerance < 0 {
		return invalid("closure settings must not be negative")
	}
	return nil
}

// WithTemperature returns a copy of c starting at temperature t. Species and
// reactions are shared.
func (c *Case) WithTemperature(t float64) *Case {
	cp := *c
	cp.Initial.Temperature = t
	return &cp
}

func (c *Case) Thermo() (*thermo.Map, error) {
	species := make([]thermo.Species, len(c.Species))
	for i, s := range c.Species {
		if s.NASA == nil {
			species[i] = thermo.ConstantCp(s.Name, s.MolecularWeight, s.Cp, s.H298, s.S298)
			continue
		}
		if len(s.NASA.Low) != 7 || len(s.NASA.High) != 7 {
			return nil, invalid("species %q: nasa polynomials need 7 coefficients", s.Name)
		}
		sp := thermo.Species{
			Name:            s.Name,
			MolecularWeight: s.MolecularWeight,
			TLow:            s.NASA.TLow,
			TMid:            s.NASA.TMid,
			THigh:           s.NASA.THigh,
		}
		copy(sp.Low[:], s.NASA.Low)
		copy(sp.High[:], s.NASA.High)
		species[i] = sp
	}
	return thermo.NewMap(species)
}

func participants(th *thermo.Map, equation string, side map[string]float64) ([]kinetics.Participant, error) {
	names := make([]string, 0, len(side))
	for name := range side {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]kinetics.Participant, 0, len(side))
	for _, name := range names {
		i, ok := th.Index(name)
		if !ok {
			return nil, invalid("reaction %q: unknown species %q", equation, name)
		}
		parts = append(parts, kinetics.Participant{Species: i, Coefficient: side[name]})
	}
	return parts, nil
}

func (c *Case) Kinetics(th *thermo.Map) (*kinetics.Map, error) {
	reactions := make([]kinetics.Reaction, len(c.Reactions))
	for j, rc := range c.Reactions {
		r := kinetics.Reaction{
			Equation:   rc.Equation,
			Forward:    kinetics.Arrhenius{A: rc.A, Beta: rc.Beta, Ea: rc.Ea},
			Reversible: rc.Reversible,
			ThirdBody:  rc.ThirdBody,
		}
		var err error
		if r.Reactants, err = participants(th, rc.Equation, rc.Reactants); err != nil {
			return nil, err
		}
		if r.Products, err = participants(th, rc.Equation, rc.Products); err != nil {
			return nil, err
		}
		if rc.Reverse != nil {
			r.Reverse = &kinetics.Arrhenius{A: rc.Reverse.A, Beta: rc.Reverse.Beta, Ea: rc.Reverse.Ea}
		}
		if len(rc.Efficiencies) > 0 {
			r.Efficiencies = make(map[int]float64, len(rc.Efficiencies))
			for name, eff := range rc.Efficiencies {
				i, ok := th.Index(name)
				if !ok {
					return nil, invalid("reaction %q: unknown species %q", rc.Equation, name)
				}
				r.Efficiencies[i] = eff
			}
		}
		reactions[j] = r
	}
	return kinetics.NewMap(th, reactions)
}

// MoleFractions returns the normalized initial mole fractions ordered like
// the species of th.
func (c *Case) MoleFractions(th *thermo.Map) ([]float64, error) {
	x := make([]float64, th.NumberOfSpecies())
	sum := 0.0
	for name, v := range c.Initial.MoleFractions {
		i, ok := th.Index(name)
		if !ok {
			return nil, invalid("initial mole fraction for unknown species %q", name)
		}
		x[i] = v
		sum += v
	}
	if !(sum > 0) {
		return nil, invalid("initial mole fractions sum to zero")
	}
	for i := range x {
		x[i] /= sum
	}
	return x, nil
}

func (c *Case) InitialState() thermo.State {
	return thermo.State{T: c.Initial.Temperature, P: c.Initial.Pressure}
}

func (c *Case) InitialConcentrations(th *thermo.Map) ([]float64, error) {
	x, err := c.MoleFractions(th)
	if err != nil {
		return nil, err
	}
	return th.Concentrations(c.InitialState(), x)
}

// InternalEnergy returns the mass specific internal energy of the initial
// mixture, the quantity conserved by the adiabatic reactor.
func (c *Case) InternalEnergy(th *thermo.Map) (float64, error) {
	x, err := c.MoleFractions(th)
	if err != nil {
		return 0, err
	}
	return th.MassInternalEnergy(c.Initial.Temperature, x), nil
}

func (c *Case) SimConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Dt = c.Solver.Dt
	cfg.Duration = c.Solver.Duration
	cfg.Adaptive = c.Solver.Adaptive
	if c.Solver.Tolerance > 0 {
		cfg.Tolerance = c.Solver.Tolerance
	}
	if c.Solver.MaxDt > 0 {
		cfg.MaxDt = c.Solver.MaxDt
	} else {
		cfg.MaxDt = c.Solver.Duration
	}
	if c.Solver.MinDt > 0 {
		cfg.MinDt = c.Solver.MinDt
	}
	return cfg
}

// ModelOptions translates the closure settings into reactor options.
func (c *Case) ModelOptions() []reactor.Option {
	var opts []reactor.Option
	if c.Solver.MaxClosureIterations > 0 {
		opts = append(opts, reactor.WithMaxClosureIterations(c.Solver.MaxClosureIterations))
	}
	if c.Solver.ClosureTolerance > 0 {
		opts = append(opts, reactor.WithClosureTolerance(c.Solver.ClosureTolerance))
	}
	if c.Solver.StrictClosure {
		opts = append(opts, reactor.WithStrictClosure())
	}
	return opts
}
