package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/san-kum/newton/internal/jacobian"
	"github.com/san-kum/newton/internal/newton"
	"github.com/san-kum/newton/internal/problems"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProblem  = "polynomial"
	DefaultJacobian = "forward"
)

type Config struct {
	Problem       string    `yaml:"problem"`
	Jacobian      string    `yaml:"jacobian"`
	Tolerance     float64   `yaml:"tolerance"`
	MaxIterations int       `yaml:"max_iterations"`
	Dx            float64   `yaml:"dx"`
	MaxRadius     float64   `yaml:"max_radius,omitempty"`
	InitialGuess  []float64 `yaml:"initial_guess,flow"`
	Coeffs        []float64 `yaml:"coeffs,flow,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem:       DefaultProblem,
		Jacobian:      DefaultJacobian,
		Tolerance:     newton.DefaultTolerance,
		MaxIterations: newton.DefaultMaxIterations,
		Dx:            newton.DefaultDx,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Analytic reports whether the problem's own Jacobian should be used.
func (c *Config) Analytic() bool {
	return c.Jacobian == "analytic"
}

func (c *Config) SolverConfig() (newton.Config, error) {
	cfg := newton.Config{
		Tolerance:     c.Tolerance,
		MaxIterations: c.MaxIterations,
		Dx:            c.Dx,
		MaxRadius:     c.MaxRadius,
	}
	if !c.Analytic() {
		scheme, err := jacobian.ParseScheme(c.Jacobian)
		if err != nil {
			return newton.Config{}, err
		}
		cfg.Scheme = scheme
	}
	return cfg, cfg.Validate()
}

// Build resolves the problem and returns a solver bound to it.
func (c *Config) Build(reg *problems.Registry, logger *slog.Logger) (problems.Problem, *newton.Solver, error) {
	p, err := reg.Get(c.Problem, c.Coeffs)
	if err != nil {
		return nil, nil, err
	}

	solverCfg, err := c.SolverConfig()
	if err != nil {
		return nil, nil, err
	}

	opts := []newton.Option{newton.WithLogger(logger)}
	if c.Analytic() {
		opts = append(opts, newton.WithJacobian(p.Jacobian))
	}

	s, err := newton.New(p.Eval, solverCfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return p, s, nil
}

// Guess returns the configured initial guess, falling back to the problem default.
func (c *Config) Guess(reg *problems.Registry, dim int) ([]float64, error) {
	guess := c.InitialGuess
	if len(guess) == 0 {
		var err error
		if guess, err = reg.DefaultGuess(c.Problem); err != nil {
			return nil, err
		}
	}
	if len(guess) != dim {
		return nil, fmt.Errorf("initial guess has %d components, %s needs %d", len(guess), c.Problem, dim)
	}
	return guess, nil
}
