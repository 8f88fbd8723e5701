// Package plan holds the named, task-independent form of a plan.
package plan

import (
	"bufio"
	"fmt"
	"strings"

	"liftplan/internal/task"
)

// Step is one ground action by name.
type Step struct {
	Action string
	Params []string
}

func (s Step) String() string {
	if len(s.Params) == 0 {
		return "(" + s.Action + ")"
	}
	return "(" + s.Action + " " + strings.Join(s.Params, " ") + ")"
}

// Plan is a sequence of steps in execution order.
type Plan struct {
	Steps []Step
}

// FromActions names a sequence of ground actions of tk.
func FromActions(tk *task.Task, actions []task.Action) Plan {
	p := Plan{Steps: make([]Step, len(actions))}
	for i, a := range actions {
		schema := &tk.Schemas[a.Schema]
		step := Step{Action: schema.Name, Params: make([]string, a.Instantiation.Len())}
		for j := range step.Params {
			step.Params[j] = tk.Objects[a.Instantiation.At(j)].Name
		}
		p.Steps[i] = step
	}
	return p
}

// Len is the number of steps, which is also the plan cost.
func (p Plan) Len() int { return len(p.Steps) }

// String renders one step per line.
func (p Plan) String() string {
	var b strings.Builder
	for _, s := range p.Steps {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Parse reads the rendering produced by String. Blank lines and lines
// starting with ';' are skipped.
func Parse(text string) (Plan, error) {
	var p Plan
	sc := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, ";") {
			continue
		}
		if !strings.HasPrefix(raw, "(") || !strings.HasSuffix(raw, ")") {
			return Plan{}, fmt.Errorf("plan line %d: expected (action params...), got %q", line, raw)
		}
		fields := strings.Fields(raw[1 : len(raw)-1])
		if len(fields) == 0 {
			return Plan{}, fmt.Errorf("plan line %d: empty step", line)
		}
		p.Steps = append(p.Steps, Step{Action: fields[0], Params: fields[1:]})
	}
	if err := sc.Err(); err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return p, nil
}
