package nfc

import (
	"fmt"
	"slices"

	"github.com/golang/glog"
)

// RetryPolicy is a chip's read-retry table. Entering step s writes
// Values[s*len(Registers)+r] to chip register Registers[r]. Step 0 is the
// power-on sense level.
type RetryPolicy struct {
	Steps     int
	Registers []uint8
	Values    []uint8
}

// NoRetry is the policy of chips without alternate sense levels.
var NoRetry = RetryPolicy{Steps: 1}

// Validate checks the table shape.
func (p RetryPolicy) Validate() error {
	if p.Steps < 1 {
		return fmt.Errorf("%d read retry steps: %w", p.Steps, ErrInvalidChipTable)
	}
	if len(p.Values) != p.Steps*len(p.Registers) {
		return fmt.Errorf("read retry table has %d values, want %d steps x %d registers: %w",
			len(p.Values), p.Steps, len(p.Registers), ErrInvalidChipTable)
	}
	return nil
}

// StepValues returns the register values of step, or nil if the policy has
// no such step.
func (p RetryPolicy) StepValues(step int) []uint8 {
	n := len(p.Registers)
	if step < 0 || step >= p.Steps || (step+1)*n > len(p.Values) {
		return nil
	}
	return p.Values[step*n : (step+1)*n]
}

// Clone returns a deep copy of p.
func (p RetryPolicy) Clone() RetryPolicy {
	return RetryPolicy{Steps: p.Steps, Registers: slices.Clone(p.Registers), Values: slices.Clone(p.Values)}
}

type retryController struct {
	c      *Controller
	policy RetryPolicy
	step   int
}

// setup pushes the register set of step into the chip. Each register is
// latched individually with 0x36; the chip applies the whole set on 0x16.
func (r *retryController) setup(step int) error {
	if step < 0 || step >= r.policy.Steps {
		return fmt.Errorf("step %d of %d: %w", step, r.policy.Steps, ErrInvalidStep)
	}
	if len(r.policy.Registers) == 0 {
		r.step = step
		return nil
	}

	glog.V(1).Infof("RR %d", step)
	values := r.policy.StepValues(step)
	for i, addr := range r.policy.Registers {
		r.c.writeParam(nandCmdSetParam, addr, values[i])
	}
	r.c.sendCmd(nandCmdCommitParam)

	if st := r.c.readStatus(); st.Fail() {
		return fmt.Errorf("step %d: status %v: %w", step, st, ErrRetrySetup)
	}
	r.step = step
	return nil
}

// SetupRetryStep selects read-retry step on the chip.
func (c *Controller) SetupRetryStep(step int) error {
	if c.chip == nil {
		return ErrNotInitialized
	}
	return c.rr.setup(step)
}

// RetryStep returns the read-retry step currently programmed into the chip.
func (c *Controller) RetryStep() int { return c.rr.step }

// RetryPolicy returns a copy of the chip's read-retry table.
func (c *Controller) RetryPolicy() RetryPolicy { return c.rr.policy.Clone() }
