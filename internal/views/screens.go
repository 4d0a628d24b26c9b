package views

import (
	"fmt"
	"strings"
)

type IntakePanelData struct {
	Day          string
	TotalML      int
	GoalML       int
	MaxML        int
	GlassML      int
	Glasses      int
	GoalReached  bool
	ProgressView string
	ProgressPct  int
	Loading      bool
	SpinnerView  string
}

type StatsPanelData struct {
	TotalML     int
	GoalML      int
	MaxML       int
	GlassML     int
	Glasses     int
	GoalReached bool
}

type AmountPromptData struct {
	Active    bool
	InputView string
	ErrorText string
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

func RenderIntakePanel(data IntakePanelData) string {
	var b strings.Builder
	b.WriteString("intake:\n")
	if data.Loading {
		b.WriteString(fmt.Sprintf("%s restoring saved intake...\n", data.SpinnerView))
		return strings.TrimSpace(b.String())
	}
	b.WriteString(fmt.Sprintf("day: %s\n", data.Day))
	b.WriteString(fmt.Sprintf("total: %d / %d ml\n", data.TotalML, data.GoalML))
	b.WriteString(fmt.Sprintf("progress: %s %d%%\n", data.ProgressView, data.ProgressPct))
	b.WriteString(fmt.Sprintf("glasses: %s %d\n", glassRow(data), data.Glasses))
	if data.GoalReached {
		b.WriteString("goal: REACHED\n")
	} else {
		b.WriteString(fmt.Sprintf("goal: %d ml to go\n", remaining(data.TotalML, data.GoalML)))
	}
	b.WriteString("actions: [+/space]drink [-]undo [a]amount")
	return strings.TrimSpace(b.String())
}

func RenderStatsPanel(data StatsPanelData) string {
	var b strings.Builder
	b.WriteString("today:\n")
	b.WriteString(fmt.Sprintf("consumed: %d ml (%d glasses of %d ml)\n", data.TotalML, data.Glasses, data.GlassML))
	b.WriteString(fmt.Sprintf("remaining to goal: %d ml\n", remaining(data.TotalML, data.GoalML)))
	b.WriteString(fmt.Sprintf("headroom to cap: %d ml\n", remaining(data.TotalML, data.MaxML)))
	if data.GoalReached {
		b.WriteString("status: daily goal reached")
	} else {
		glassesLeft := (remaining(data.TotalML, data.GoalML) + data.GlassML - 1) / data.GlassML
		b.WriteString(fmt.Sprintf("status: %d glass(es) to go", glassesLeft))
	}
	return strings.TrimSpace(b.String())
}

func RenderAmountPrompt(data AmountPromptData) string {
	if !data.Active {
		return ""
	}
	var b strings.Builder
	b.WriteString("\namount:\n")
	b.WriteString("keys: [enter] add [esc] cancel\n")
	b.WriteString(data.InputView)
	if data.ErrorText != "" {
		b.WriteString("\nerror: " + data.ErrorText)
	}
	return b.String()
}

func RenderCelebration(totalML int) string {
	return fmt.Sprintf("goal reached at %d ml, well done!", totalML)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n%s",
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func glassRow(data IntakePanelData) string {
	if data.GlassML <= 0 || data.GoalML <= 0 {
		return ""
	}
	goalGlasses := (data.GoalML + data.GlassML - 1) / data.GlassML
	filled := data.Glasses
	if filled > goalGlasses {
		filled = goalGlasses
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", goalGlasses-filled) + "]"
}

func remaining(total, target int) int {
	if total >= target {
		return 0
	}
	return target - total
}
