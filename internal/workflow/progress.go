package workflow

import (
	"time"

	"github.com/memorial-automator/client/internal/models"
)

// stepPercents are the progress targets of the five animation steps.
var stepPercents = []int{20, 40, 60, 80, 100}

// animation is one run of the cosmetic progress ticker. It is owned by the
// controller; a run that is no longer c.anim must not touch the view.
type animation struct {
	stop chan struct{}
	done chan struct{}
}

func (c *Controller) initialProgress() models.ProgressView {
	steps := make([]models.ProgressStep, len(stepPercents))
	for i, pct := range stepPercents {
		label := ""
		if i < len(c.msgs.Steps) {
			label = c.msgs.Steps[i]
		}
		steps[i] = models.ProgressStep{Label: label, Percent: pct, Status: models.StepPending}
	}
	return models.ProgressView{
		StatusText: c.msgs.ProcessingStart,
		Percent:    0,
		Steps:      steps,
	}
}

// startAnimationLocked launches the ticker. Caller holds c.mu.
func (c *Controller) startAnimationLocked() {
	a := &animation{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.anim = a
	go c.runAnimation(a, c.interval)
}

// stopAnimationLocked cancels the running ticker, if any. Caller holds c.mu.
func (c *Controller) stopAnimationLocked() {
	if c.anim == nil {
		return
	}
	close(c.anim.stop)
	c.anim = nil
}

func (c *Controller) runAnimation(a *animation, interval time.Duration) {
	defer close(a.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for step := range stepPercents {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
		}
		if !c.advance(a, step) {
			return
		}
	}
}

// advance marks step as active and the previous step as completed.
func (c *Controller) advance(a *animation, step int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.anim != a || c.state != models.ViewProcessing {
		return false
	}

	p := &c.progress
	p.Steps[step].Status = models.StepActive
	if step > 0 {
		p.Steps[step-1].Status = models.StepCompleted
	}
	p.StatusText = p.Steps[step].Label
	p.Percent = p.Steps[step].Percent

	if step == len(stepPercents)-1 {
		c.anim = nil
	}
	c.renderLocked()
	return true
}
