package viz

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/newton/internal/newton"
	"github.com/san-kum/newton/internal/numeric"
)

// Stepper walks a solve one Newton step per key press. It follows the same
// state machine as newton.Solver.Trace, including the iteration budget.
type Stepper struct {
	solver    *newton.Solver
	title     string
	start     numeric.Vector
	x         numeric.Vector
	fx        numeric.Vector
	norm      float64
	iter      int
	residuals []float64
	status    newton.Status
	err       error
}

func NewStepper(title string, solver *newton.Solver, x0 numeric.Vector) Stepper {
	m := Stepper{
		solver: solver,
		title:  title,
		start:  x0.Clone(),
	}
	m.reset()
	return m
}

func (m Stepper) Init() tea.Cmd { return nil }

func (m Stepper) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "n", " ", "enter":
		m.step()
	case "r":
		m.reset()
	}
	return m, nil
}

func (m *Stepper) reset() {
	m.x = m.start.Clone()
	m.iter = 0
	m.residuals = nil
	m.status = newton.Iterating
	m.err = nil
	m.evaluate()
}

func (m *Stepper) evaluate() {
	fx, norm, err := m.solver.Residual(m.x)
	if err != nil {
		m.fail(err)
		return
	}
	m.fx, m.norm = fx, norm
	m.residuals = append(m.residuals, norm)
	if norm < m.solver.Config().Tolerance {
		m.status = newton.Converged
	}
}

func (m *Stepper) step() {
	if m.status != newton.Iterating {
		return
	}
	next, err := m.solver.Step(m.x, m.fx)
	if err != nil {
		m.fail(err)
		return
	}
	m.x = next
	m.iter++
	m.evaluate()

	if m.status == newton.Iterating && m.iter >= m.solver.Config().MaxIterations {
		m.fail(newton.ErrConvergence)
	}
}

func (m *Stepper) fail(err error) {
	m.status = newton.StatusOf(err)
	m.err = err
}

func (m Stepper) Status() newton.Status { return m.status }

func (m Stepper) X() numeric.Vector { return m.x.Clone() }

func (m Stepper) Err() error { return m.err }

func (m Stepper) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(m.title)) + "\n\n")
	s.WriteString(MetricLabel.Render("Status") + statusStyle(m.status).Render(m.status.String()) + "\n")
	s.WriteString(MetricLabel.Render("Jacobian") + MetricValue.Render(m.solver.JacobianSource()) + "\n")
	s.WriteString(MetricLabel.Render("Iteration") + MetricValue.Render(fmt.Sprintf("%d / %d", m.iter, m.solver.Config().MaxIterations)) + "\n")
	s.WriteString(MetricLabel.Render("x") + MetricValue.Render(FormatVector(m.x)) + "\n")
	if m.fx != nil {
		s.WriteString(MetricLabel.Render("|f(x)|") + MetricValue.Render(fmt.Sprintf("%.3e", m.norm)) + "\n")
	}
	if m.err != nil {
		msg := m.err.Error()
		if errors.Is(m.err, newton.ErrConvergence) {
			msg = fmt.Sprintf("no root within %d iterations", m.solver.Config().MaxIterations)
		}
		s.WriteString(StatusFailed.Render("error: "+msg) + "\n")
	}

	if len(m.residuals) > 1 {
		s.WriteString(graphStyle.Render(PlotResiduals(m.residuals, 40, 6)) + "\n")
	}

	s.WriteString("\n" + Separator(40) + "\n")
	s.WriteString(KeyHint.Render("N/Space:Step  R:Reset  Q:Quit"))
	return s.String()
}

// RunStepper blocks until the user quits.
func RunStepper(m Stepper) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
