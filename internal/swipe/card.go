package swipe

import (
	"time"

	"github.com/desertthunder/cur8/internal/models"
)

// Gesture tuning, in drag units and seconds.
const (
	SwipeThreshold    = 80.0
	VelocityThreshold = 400.0
	MaxDrag           = 400.0
	RotationRange     = 12.0
	rotationSpan      = 200.0

	// NudgeStep is how far one h/l keypress drags the card.
	NudgeStep = 30.0

	// velocityWindow bounds the samples used to estimate release velocity.
	velocityWindow = 100 * time.Millisecond

	// minMotion is how long the card must have been moving before its speed counts. A single keypress has none.
	minMotion = 16 * time.Millisecond
)

// ExitDuration is the length of the fly-out animation.
const ExitDuration = 300 * time.Millisecond

type sample struct {
	offset float64
	at     time.Time
}

// Card tracks the horizontal drag of the displayed track.
type Card struct {
	offset  float64
	samples []sample
	now     func() time.Time
}

// NewCard returns a centered card.
func NewCard() *Card {
	return &Card{now: time.Now}
}

// WithClock replaces the card's clock.
func (c *Card) WithClock(now func() time.Time) *Card {
	c.now = now
	return c
}

// Offset is the current horizontal displacement, clamped to ±[MaxDrag].
func (c *Card) Offset() float64 { return c.offset }

// Dragging reports whether the card is off center.
func (c *Card) Dragging() bool { return c.offset != 0 }

// Rotation maps the offset onto ±[RotationRange] degrees across ±200 units.
func (c *Card) Rotation() float64 {
	return clamp(c.offset/rotationSpan*RotationRange, -RotationRange, RotationRange)
}

// MoveTo drags the card to offset.
func (c *Card) MoveTo(offset float64) {
	now := c.now()
	if len(c.samples) == 0 {
		c.samples = append(c.samples, sample{offset: c.offset, at: now})
	}

	c.offset = clamp(offset, -MaxDrag, MaxDrag)
	c.samples = append(c.samples, sample{offset: c.offset, at: now})
	c.trim(now)
}

// Nudge drags the card by delta.
func (c *Card) Nudge(delta float64) {
	c.MoveTo(c.offset + delta)
}

// Velocity estimates the drag speed in units per second over the most recent samples. It is zero until the samples
// span at least one frame of motion.
func (c *Card) Velocity() float64 {
	now := c.now()
	c.trim(now)
	if len(c.samples) < 2 {
		return 0
	}

	first, last := c.samples[0], c.samples[len(c.samples)-1]
	if last.at.Sub(first.at) < minMotion {
		return 0
	}
	dt := now.Sub(first.at).Seconds()
	if dt <= 0 {
		return 0
	}
	return (last.offset - first.offset) / dt
}

// Release ends the drag. It reports keep when the card went far or fast enough to the right, remove for the left,
// and otherwise snaps back to center and reports false. A decided card keeps its offset so the exit starts there.
func (c *Card) Release() (models.Action, bool) {
	offset, velocity := c.offset, c.Velocity()
	c.samples = c.samples[:0]

	switch {
	case offset > SwipeThreshold || velocity > VelocityThreshold:
		return models.ActionKeep, true
	case offset < -SwipeThreshold || velocity < -VelocityThreshold:
		return models.ActionRemove, true
	default:
		c.offset = 0
		return "", false
	}
}

// Reset centers the card and forgets its drag history.
func (c *Card) Reset() {
	c.offset = 0
	c.samples = c.samples[:0]
}

// trim drops samples older than the velocity window, keeping the newest one.
func (c *Card) trim(now time.Time) {
	cutoff := now.Add(-velocityWindow)
	i := 0
	for i < len(c.samples)-1 && c.samples[i].at.Before(cutoff) {
		i++
	}
	c.samples = c.samples[i:]
}

// Pose is a card transform: translation in drag units and rotation in degrees.
type Pose struct {
	X, Y, Rotate float64
}

// ExitPose is where a card ends up after leaving in direction d.
func ExitPose(d Direction) Pose {
	switch d {
	case DirectionLeft:
		return Pose{X: -500, Y: 120, Rotate: -15}
	case DirectionRight:
		return Pose{X: 500, Y: -120, Rotate: 15}
	default:
		return Pose{}
	}
}

// Exit is a running fly-out animation.
type Exit struct {
	Direction Direction
	From      Pose
	Start     time.Time
	Duration  time.Duration
}

// NewExit starts an exit from the card's current pose.
func NewExit(c *Card, d Direction, start time.Time) Exit {
	return Exit{
		Direction: d,
		From:      Pose{X: c.Offset(), Rotate: c.Rotation()},
		Start:     start,
		Duration:  ExitDuration,
	}
}

// Progress is the eased completion in [0, 1] at now.
func (e Exit) Progress(now time.Time) float64 {
	if e.Duration <= 0 {
		return 1
	}
	t := clamp(float64(now.Sub(e.Start))/float64(e.Duration), 0, 1)
	return EaseIn(t)
}

// Pose interpolates between the starting pose and the exit pose.
func (e Exit) Pose(now time.Time) Pose {
	p, to := e.Progress(now), ExitPose(e.Direction)
	return Pose{
		X:      e.From.X + (to.X-e.From.X)*p,
		Y:      e.From.Y + (to.Y-e.From.Y)*p,
		Rotate: e.From.Rotate + (to.Rotate-e.From.Rotate)*p,
	}
}

// Done reports whether the animation has finished at now.
func (e Exit) Done(now time.Time) bool {
	return !now.Before(e.Start.Add(e.Duration))
}

// EaseIn is a quadratic ease-in curve.
func EaseIn(t float64) float64 {
	return t * t
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
