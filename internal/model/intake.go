package model

import (
	"errors"
	"fmt"
)

var ErrInvalidAmount = errors.New("model: intake amount must be positive")

// Goal bundles the configurable intake thresholds. MaxML is the hard clamp:
// the daily goal plus the allowed overflow above it.
type Goal struct {
	GlassML int
	GoalML  int
	MaxML   int
}

const (
	DefaultGlassML    = 250
	DefaultGoalML     = 2000
	DefaultOverflowML = 1000
)

func DefaultGoal() Goal {
	return Goal{
		GlassML: DefaultGlassML,
		GoalML:  DefaultGoalML,
		MaxML:   DefaultGoalML + DefaultOverflowML,
	}
}

func (g Goal) Validate() error {
	if g.GlassML <= 0 {
		return fmt.Errorf("model: glass size must be positive, got %d", g.GlassML)
	}
	if g.GoalML <= 0 {
		return fmt.Errorf("model: daily goal must be positive, got %d", g.GoalML)
	}
	if g.MaxML < g.GoalML {
		return fmt.Errorf("model: max intake %d below daily goal %d", g.MaxML, g.GoalML)
	}
	return nil
}

// IntakeState is the cumulative intake for one calendar day. It is a value
// type: Add and Remove return a new state and never mutate the receiver, so
// persistence and celebration checks stay separate steps for the caller.
type IntakeState struct {
	TotalML     int
	Day         DayKey
	GoalReached bool
}

// NewDayState is the rollover reset: zero intake, cleared latch.
func NewDayState(day DayKey) IntakeState {
	return IntakeState{Day: day}
}

// Add accumulates intake, saturating at the configured maximum.
func (s IntakeState) Add(amountML int, g Goal) IntakeState {
	if amountML <= 0 {
		return s
	}
	next := s
	next.TotalML = s.TotalML + amountML
	if next.TotalML > g.MaxML {
		next.TotalML = g.MaxML
	}
	return next
}

// Remove subtracts intake, saturating at zero.
func (s IntakeState) Remove(amountML int) IntakeState {
	if amountML <= 0 {
		return s
	}
	next := s
	next.TotalML = s.TotalML - amountML
	if next.TotalML < 0 {
		next.TotalML = 0
	}
	return next
}

// ProgressFraction reports goal completion in [0, 1].
func (s IntakeState) ProgressFraction(g Goal) float64 {
	if g.GoalML <= 0 {
		return 0
	}
	f := float64(s.TotalML) / float64(g.GoalML)
	if f > 1 {
		return 1
	}
	return f
}

// Glasses reports how many whole glasses the current total covers.
func (s IntakeState) Glasses(g Goal) int {
	if g.GlassML <= 0 {
		return 0
	}
	return s.TotalML / g.GlassML
}
