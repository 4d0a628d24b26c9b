package update

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/adamhollisterbot/water-tracker/internal/rollover"
	"github.com/adamhollisterbot/water-tracker/internal/tracker"
	"github.com/adamhollisterbot/water-tracker/internal/views"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Add    string
	Remove string
	Amount string
	Help   string
	Quit   string
}

type AmountPromptState struct {
	Active bool
	Err    string
}

// Model is the Bubbletea presentation model. It dispatches commands into
// the tracker and renders snapshots; it never touches intake state directly.
type Model struct {
	Tracker        *tracker.Tracker
	Rollover       *rollover.Engine
	Snapshot       tracker.Snapshot
	Loading        bool
	Status         StatusBar
	Keys           GlobalKeyMap
	HelpVisible    bool
	Quitting       bool
	LastError      error
	Celebration    string
	DesktopEnabled bool
	notifier       DesktopNotifier

	// Bubble components used for rich TUI controls
	progressBar  progress.Model
	loadSpinner  spinner.Model
	amountInput  textinput.Model
	helpModel    help.Model
	amountPrompt AmountPromptState
}

type StateLoadedMsg struct {
	Snapshot tracker.Snapshot
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type DayChangedMsg struct {
	Event rollover.Event
}

func NewModel(tr *tracker.Tracker) Model {
	m := Model{
		Tracker: tr,
		Loading: true,
		Keys: GlobalKeyMap{
			Add:    "+",
			Remove: "-",
			Amount: "a",
			Help:   "?",
			Quit:   "q",
		},
		notifier: NoopDesktopNotifier{},
	}
	m.initBubbleComponents()
	return m
}

func NewModelWithConfig(tr *tracker.Tracker, engine *rollover.Engine, notifier DesktopNotifier, cfg RuntimeConfig) Model {
	m := NewModel(tr)
	m.Rollover = engine
	m.DesktopEnabled = cfg.DesktopNotifications
	if notifier != nil {
		m.notifier = notifier
	}
	return m
}

func (m *Model) initBubbleComponents() {
	m.progressBar = progress.New(progress.WithDefaultGradient())

	m.loadSpinner = spinner.New()
	m.loadSpinner.Spinner = spinner.Dot

	m.amountInput = textinput.New()
	m.amountInput.Prompt = "ml> "
	m.amountInput.CharLimit = 5
	m.amountInput.Width = 12

	m.helpModel = help.New()
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSpinner.Tick, loadStateCmd(m.Tracker)}
	if m.Rollover != nil {
		cmds = append(cmds, waitForDayChangeCmd(m.Rollover.C()))
	}
	return tea.Batch(cmds...)
}

func loadStateCmd(tr *tracker.Tracker) tea.Cmd {
	return func() tea.Msg {
		return StateLoadedMsg{Snapshot: tr.Load(context.Background())}
	}
}

func waitForDayChangeCmd(ch <-chan rollover.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return DayChangedMsg{Event: ev}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.amountPrompt.Active {
			return m.handleAmountPromptKey(typed)
		}
		switch typed.String() {
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		}
		if m.Loading {
			m.Status = StatusBar{Text: "still restoring saved intake"}
			return m, nil
		}
		switch typed.String() {
		case m.Keys.Add, " ":
			return m.applyResult(m.Tracker.AddGlass()), nil
		case m.Keys.Remove:
			return m.applyResult(m.Tracker.RemoveGlass()), nil
		case m.Keys.Amount:
			m.amountPrompt = AmountPromptState{Active: true}
			m.amountInput.SetValue("")
			focusCmd := m.amountInput.Focus()
			m.Status = StatusBar{Text: "enter amount in ml"}
			return m, focusCmd
		}
	case spinner.TickMsg:
		if m.Loading {
			var cmd tea.Cmd
			m.loadSpinner, cmd = m.loadSpinner.Update(typed)
			return m, cmd
		}
	case StateLoadedMsg:
		m.Loading = false
		m.Snapshot = typed.Snapshot
		m.Status = StatusBar{Text: fmt.Sprintf("tracking %s", typed.Snapshot.Day)}
		return m, nil
	case DayChangedMsg:
		snap, reset := m.Tracker.Rollover(typed.Event.At)
		m.Snapshot = snap
		m.Celebration = ""
		if reset {
			m.Status = StatusBar{Text: fmt.Sprintf("new day %s, count reset", snap.Day)}
		}
		if m.Rollover != nil {
			return m, waitForDayChangeCmd(m.Rollover.C())
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleAmountPromptKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.amountPrompt = AmountPromptState{}
		m.amountInput.Blur()
		m.Status = StatusBar{Text: "amount entry cancelled"}
	case "enter":
		raw := strings.TrimSpace(m.amountInput.Value())
		amount, err := strconv.Atoi(raw)
		if err != nil || amount <= 0 {
			m.amountPrompt.Err = fmt.Sprintf("%q is not a positive ml amount", raw)
			return m, nil
		}
		m.amountPrompt = AmountPromptState{}
		m.amountInput.Blur()
		return m.applyResult(m.Tracker.AddAmount(amount)), nil
	default:
		if msg.Type == tea.KeyRunes {
			m.amountInput.SetValue(m.amountInput.Value() + string(msg.Runes))
			return m, nil
		}
		var cmd tea.Cmd
		m.amountInput, cmd = m.amountInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) applyResult(res tracker.Result, err error) Model {
	if err != nil {
		if errors.Is(err, tracker.ErrNotReady) {
			m.Status = StatusBar{Text: "still restoring saved intake"}
			return m
		}
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	m.Snapshot = res.Snapshot
	m.Status = StatusBar{Text: fmt.Sprintf("%d ml today", res.TotalML)}
	if res.Celebrated {
		m.Celebration = views.RenderCelebration(res.TotalML)
		m.Status = StatusBar{Text: "daily goal reached"}
		if m.DesktopEnabled && m.notifier != nil {
			_ = m.notifier.Send(Notification{Title: "water-tracker", Body: m.Celebration})
		}
	}
	return m
}

func (m Model) View() string {
	goal := m.Tracker.Goal()

	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	leftPane := views.RenderIntakePanel(views.IntakePanelData{
		Day:          string(m.Snapshot.Day),
		TotalML:      m.Snapshot.TotalML,
		GoalML:       goal.GoalML,
		MaxML:        goal.MaxML,
		GlassML:      goal.GlassML,
		Glasses:      m.Snapshot.Glasses,
		GoalReached:  m.Snapshot.GoalReached,
		ProgressView: m.progressBar.ViewAs(m.Snapshot.ProgressFraction),
		ProgressPct:  int(m.Snapshot.ProgressFraction * 100),
		Loading:      m.Loading,
		SpinnerView:  m.loadSpinner.View(),
	})

	rightPane := views.RenderStatsPanel(views.StatsPanelData{
		TotalML:     m.Snapshot.TotalML,
		GoalML:      goal.GoalML,
		MaxML:       goal.MaxML,
		GlassML:     goal.GlassML,
		Glasses:     m.Snapshot.Glasses,
		GoalReached: m.Snapshot.GoalReached,
	})
	rightPane += views.RenderAmountPrompt(views.AmountPromptData{
		Active:    m.amountPrompt.Active,
		InputView: m.amountInput.View(),
		ErrorText: m.amountPrompt.Err,
	})
	rightPane += m.renderHelpIfVisible()

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("water-tracker | day: %s", m.Snapshot.Day),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: m.Celebration,
		Footer: fmt.Sprintf("keys: %s/space drink | %s undo | %s amount | %s help | %s quit",
			m.Keys.Add, m.Keys.Remove, m.Keys.Amount, m.Keys.Help, m.Keys.Quit),
	})
}

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	bindings := m.keyBindings()
	var md strings.Builder
	md.WriteString("## keys\n\n")
	for _, kb := range bindings {
		md.WriteString(fmt.Sprintf("- `%s` %s\n", kb.Key, kb.Action))
	}
	plain := []string{views.RenderMarkdown(md.String())}
	helpBindings := make([]key.Binding, 0, len(bindings))
	for _, kb := range bindings {
		helpBindings = append(helpBindings, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return "\n" + views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: helpBindings,
			full:  [][]key.Binding{helpBindings},
		}),
	})
}

func (m Model) keyBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Add + "/space", Action: "drink one glass"},
		{Key: m.Keys.Remove, Action: "undo one glass"},
		{Key: m.Keys.Amount, Action: "add custom amount"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}
