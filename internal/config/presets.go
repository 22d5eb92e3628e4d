package config

import "sort"

var Presets = map[string]map[string]*Config{
	"linear": {
		"exact": {
			Problem: "linear", Jacobian: "forward", Tolerance: 1e-15, MaxIterations: 2, Dx: 1e-6,
			InitialGuess: []float64{2.0}, Coeffs: []float64{3, 6},
		},
	},
	"polynomial": {
		"right": {
			Problem: "polynomial", Jacobian: "forward", Tolerance: 1e-6, MaxIterations: 20, Dx: 1e-6,
			InitialGuess: []float64{3.5}, Coeffs: []float64{1, -1, -6},
		},
		"left": {
			Problem: "polynomial", Jacobian: "forward", Tolerance: 1e-6, MaxIterations: 20, Dx: 1e-6,
			InitialGuess: []float64{-1.5}, Coeffs: []float64{1, -1, -6},
		},
		"analytic": {
			Problem: "polynomial", Jacobian: "analytic", Tolerance: 1e-12, MaxIterations: 20, Dx: 1e-6,
			InitialGuess: []float64{3.5}, Coeffs: []float64{1, -1, -6},
		},
	},
	"cubic": {
		"budget": {
			Problem: "cubic", Jacobian: "forward", Tolerance: 1e-15, MaxIterations: 2, Dx: 1e-6,
			InitialGuess: []float64{5.0}, Coeffs: []float64{1, 0, 0, 0},
		},
		"slow": {
			Problem: "cubic", Jacobian: "analytic", Tolerance: 1e-9, MaxIterations: 50, Dx: 1e-6,
			InitialGuess: []float64{5.0}, Coeffs: []float64{1, 0, 0, 0},
		},
	},
	"squares": {
		"origin": {
			Problem: "squares", Jacobian: "analytic", Tolerance: 1e-13, MaxIterations: 50, Dx: 1e-6,
			InitialGuess: []float64{0.1, -0.1},
		},
		"central": {
			Problem: "squares", Jacobian: "central", Tolerance: 1e-13, MaxIterations: 50, Dx: 1e-6,
			InitialGuess: []float64{0.1, -0.1},
		},
	},
	"bivariate": {
		"circle": {
			Problem: "bivariate", Jacobian: "analytic", Tolerance: 1e-10, MaxIterations: 20, Dx: 1e-6,
			InitialGuess: []float64{2, 0.5}, Coeffs: []float64{1, 1, 0, 0, 0, -4, 0, 0, 0, 0, 1, -1},
		},
	},
	"affine": {
		"capped": {
			Problem: "affine", Jacobian: "forward", Tolerance: 1e-9, MaxIterations: 20, Dx: 1e-6,
			MaxRadius: 1.0, InitialGuess: []float64{10, -10}, Coeffs: []float64{4, 1, 2, 3, -1, 5},
		},
	},
	"sine": {
		"sixth": {
			Problem: "sine", Jacobian: "forward", Tolerance: 1e-10, MaxIterations: 20, Dx: 1e-7,
			InitialGuess: []float64{0.4}, Coeffs: []float64{1, 1, 0, -0.5},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(problem, preset string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	cfg, ok := problemPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	c.InitialGuess = append([]float64(nil), cfg.InitialGuess...)
	c.Coeffs = append([]float64(nil), cfg.Coeffs...)
	return &c
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
