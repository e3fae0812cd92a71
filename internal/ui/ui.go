package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/session"
	"github.com/desertthunder/cur8/internal/swipe"
)

// frameInterval paces the exit animation.
const frameInterval = 16 * time.Millisecond

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CheckingView ViewState = iota
	LoginView
	SwipeView
	HistoryView
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	holder  *session.Holder
	tracks  swipe.TrackSource
	orch    *swipe.Orchestrator
	card    *swipe.Card
	exit    *swipe.Exit
	frame   time.Time
	now     func() time.Time
	history list.Model

	showHistory bool
	rechecking  bool
	loggingIn   bool
	loginEvents chan tea.Msg
	loginURL    string
	openErr     error
	loginErr    error

	width   int
	height  int
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	logger  *log.Logger
}

// NewModel creates a new TUI model. tracks is usually the same API client the holder authenticates.
func NewModel(ctx context.Context, holder *session.Holder, tracks swipe.TrackSource, logger *log.Logger) *Model {
	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	history.Title = "Reviewed this session"
	history.SetShowHelp(false)

	return &Model{
		ctx:     ctx,
		holder:  holder,
		tracks:  tracks,
		orch:    swipe.NewOrchestrator(),
		card:    swipe.NewCard(),
		now:     time.Now,
		history: history,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
		logger:  logger,
	}
}

// Screen returns which view is showing. Login and session checks are gated by the session holder.
func (m *Model) Screen() ViewState {
	switch m.holder.Screen() {
	case session.ScreenChecking:
		return CheckingView
	case session.ScreenLogin:
		return LoginView
	}
	if m.showHistory {
		return HistoryView
	}
	return SwipeView
}

// Init checks the saved session.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.checkSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.orch.Close()
			return m, tea.Quit
		}

		switch m.Screen() {
		case LoginView:
			return m.handleLoginKeys(msg)
		case SwipeView:
			return m.handleSwipeKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionChecked:
		r := msg.data.(userResult)
		rechecked := m.rechecking
		m.rechecking = false
		if r.user == nil {
			m.logger.Debug("no valid session", "error", r.err)
			m.resetReview()
			return m, nil
		}
		if rechecked {
			return m, nil
		}
		return m, m.loadNext()

	case MsgLoginPrompt:
		p := msg.data.(loginPrompt)
		m.loginURL, m.openErr = p.url, p.openErr
		return m, m.waitForLogin()

	case MsgLoggedIn:
		r := msg.data.(userResult)
		m.loggingIn = false
		m.loginEvents = nil
		if r.err != nil {
			m.logger.Error("login failed", "error", r.err)
			m.loginErr = r.err
			return m, nil
		}
		m.loginErr, m.loginURL, m.openErr = nil, "", nil
		m.logger.Info("logged in", "user", r.user.SpotifyUserID)
		return m, m.loadNext()

	case MsgLoggedOut:
		if err, _ := msg.data.(error); err != nil {
			m.logger.Warn("logout failed", "error", err)
		}
		return m, nil

	case MsgTrackLoaded:
		r := msg.data.(trackLoaded)
		r.orch.FinishLoad(r.generation, r.track, r.err)
		if r.orch != m.orch {
			return m, nil
		}
		m.card.Reset()
		if r.err != nil {
			m.logger.Error("failed to load track", "error", r.err)
			return m, m.recheckSession(r.err)
		}
		return m, nil

	case MsgFrame:
		return m, m.advanceExit(msg.data.(time.Time))

	case MsgSwipeConfirmed:
		r := msg.data.(swipeConfirmed)
		next := r.orch.FinishConfirm(r.generation, r.err)
		if r.err != nil {
			m.logger.Error("swipe failed", "track", r.decision.Track.SpotifyTrackID, "error", r.err)
			if r.orch == m.orch {
				return m, m.recheckSession(r.err)
			}
			return m, nil
		}
		if r.orch != m.orch {
			return m, nil
		}
		m.history.InsertItem(0, reviewedItem{decision: r.decision})
		if next {
			return m, m.loadNext()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.login) && !m.loggingIn {
		return m, m.startLogin()
	}
	return m, nil
}

func (m *Model) handleSwipeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.history):
		m.showHistory = true
		return m, nil
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.retry):
		return m, m.retry()
	}

	if !m.orch.CanDecide() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.left):
		m.card.Nudge(-swipe.NudgeStep)
	case key.Matches(msg, m.keys.right):
		m.card.Nudge(swipe.NudgeStep)
	case key.Matches(msg, m.keys.release):
		if action, ok := m.card.Release(); ok {
			return m, m.decide(action)
		}
	case key.Matches(msg, m.keys.remove):
		return m, m.decide(models.ActionRemove)
	case key.Matches(msg, m.keys.keep):
		return m, m.decide(models.ActionKeep)
	}
	return m, nil
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.history) || msg.String() == "esc" {
		m.showHistory = false
		return m, nil
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

// recheckSession verifies the session again after the backend rejected it, so an expired session leads to login.
// The review is left in its error state when the session still checks out.
func (m *Model) recheckSession(err error) tea.Cmd {
	if !services.IsUnauthorized(err) || m.rechecking {
		return nil
	}
	m.rechecking = true
	return m.checkSession()
}

func (m *Model) checkSession() tea.Cmd {
	return func() tea.Msg {
		user, err := m.holder.Check(m.ctx)
		return sessionCheckedMsg(user, err)
	}
}

// startLogin runs the browser login in the background. Its prompt and result arrive through loginEvents.
func (m *Model) startLogin() tea.Cmd {
	m.loggingIn = true
	m.loginErr = nil
	events := make(chan tea.Msg, 2)
	m.loginEvents = events

	m.holder.WithPrompt(func(authURL string, openErr error) {
		events <- loginPromptMsg(authURL, openErr)
	})

	go func() {
		user, err := m.holder.Login(m.ctx)
		events <- loggedInMsg(user, err)
		close(events)
	}()

	return m.waitForLogin()
}

func (m *Model) waitForLogin() tea.Cmd {
	events := m.loginEvents
	return func() tea.Msg {
		if events == nil {
			return nil
		}
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) logout() tea.Cmd {
	m.resetReview()
	return func() tea.Msg {
		return loggedOutMsg(m.holder.Logout(m.ctx))
	}
}

// resetReview drops the review state of the previous session. Pending results become no-ops.
func (m *Model) resetReview() {
	m.orch.Close()
	m.orch = swipe.NewOrchestrator()
	m.card.Reset()
	m.exit = nil
	m.showHistory = false
	m.history.SetItems(nil)
}

func (m *Model) loadNext() tea.Cmd {
	orch := m.orch
	generation, err := orch.BeginLoad()
	if err != nil {
		m.logger.Debug("not loading", "phase", orch.Phase(), "error", err)
		return nil
	}

	return func() tea.Msg {
		track, err := m.tracks.NextTrack(m.ctx)
		return trackLoadedMsg(orch, generation, track, err)
	}
}

func (m *Model) retry() tea.Cmd {
	orch := m.orch
	generation, err := orch.Retry()
	if err != nil {
		return nil
	}

	return func() tea.Msg {
		track, err := m.tracks.NextTrack(m.ctx)
		return trackLoadedMsg(orch, generation, track, err)
	}
}

// decide records the decision and starts the exit animation. The card is detached on the next frame, after this
// render has shown the exit direction.
func (m *Model) decide(action models.Action) tea.Cmd {
	decision, err := m.orch.Decide(action)
	if err != nil {
		m.logger.Debug("decision ignored", "error", err)
		return nil
	}

	m.frame = m.now()
	exit := swipe.NewExit(m.card, decision.Direction, m.frame)
	m.exit = &exit
	return nextFrame()
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// advanceExit moves the exit animation to now and confirms the decision once it has finished.
func (m *Model) advanceExit(now time.Time) tea.Cmd {
	if m.exit == nil {
		return nil
	}
	m.frame = now

	if m.orch.Phase() == swipe.PhaseDeciding {
		if err := m.orch.Detach(); err != nil {
			m.logger.Debug("detach failed", "error", err)
		}
	}

	if !m.exit.Done(now) {
		return nextFrame()
	}

	m.exit = nil
	m.card.Reset()
	return m.confirm()
}

func (m *Model) confirm() tea.Cmd {
	orch := m.orch
	decision, generation, err := orch.BeginConfirm()
	if err != nil {
		m.logger.Debug("nothing to confirm", "error", err)
		return nil
	}

	return func() tea.Msg {
		err := m.tracks.Swipe(m.ctx, decision.Track.SpotifyTrackID, decision.Action)
		return swipeConfirmedMsg(orch, generation, decision, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.Screen() {
	case CheckingView:
		return fmt.Sprintf("\n  %s Checking session…\n", m.spinner.View())
	case LoginView:
		return m.renderLogin()
	case HistoryView:
		return m.renderHistory()
	default:
		return m.renderSwipe()
	}
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("cur8"))
	b.WriteString("\nReview your Spotify liked songs one at a time.\n\n")

	switch {
	case m.loggingIn && m.loginURL == "":
		fmt.Fprintf(&b, "%s Starting login…\n", m.spinner.View())
	case m.loggingIn:
		fmt.Fprintf(&b, "%s Waiting for you to log in with Spotify in the browser…\n", m.spinner.View())
		if m.openErr != nil {
			b.WriteString(styles.warn.Render("Could not open a browser. Open this URL:"))
			fmt.Fprintf(&b, "\n%s\n", m.loginURL)
		}
	default:
		b.WriteString("Log in with Spotify to start.\n")
	}

	if m.loginErr != nil {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(m.loginErr.Error()))
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit}))
	return b.String()
}

func (m *Model) renderSwipe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", styles.title.UnsetMarginBottom().Render("cur8"), styles.muted.Render("· "+m.holder.User().Name()))

	orch := m.orch
	switch {
	case m.exit != nil && orch.Decision() != nil:
		b.WriteString(renderCard(&orch.Decision().Track, m.exit.Pose(m.frame), m.width))
	case orch.Track() != nil:
		pose := swipe.Pose{X: m.card.Offset(), Rotate: m.card.Rotation()}
		b.WriteString(renderCard(orch.Track(), pose, m.width))
	case orch.Loading():
		fmt.Fprintf(&b, "\n\n  %s Loading…", m.spinner.View())
	case orch.Phase() == swipe.PhaseConfirming:
		fmt.Fprintf(&b, "\n\n  %s Saving…", m.spinner.View())
	case orch.Err() != nil:
		fmt.Fprintf(&b, "\n\n  %s", styles.err.Render(orch.Err().Error()))
	case orch.Empty():
		b.WriteString("\n\n  No more tracks to review. Add songs in Spotify and come back.")
	}
	b.WriteString("\n\n")

	if orch.Track() != nil {
		b.WriteString("  ")
		b.WriteString(m.renderButtons())
		b.WriteString("\n\n")
	}

	keys := []key.Binding{m.keys.left, m.keys.right, m.keys.release, m.keys.history, m.keys.logout, m.keys.quit}
	if orch.Err() != nil || orch.Empty() {
		keys = []key.Binding{m.keys.retry, m.keys.history, m.keys.logout, m.keys.quit}
	}
	b.WriteString(m.help.ShortHelpView(keys))
	return b.String()
}

// renderButtons draws the explicit Remove/Keep actions, dimmed while a decision is in progress.
func (m *Model) renderButtons() string {
	remove, keep := "[a] ✗ Remove", "[d] Keep ♥"
	if !m.orch.CanDecide() {
		return styles.muted.Render(remove + "    " + keep)
	}
	return styles.err.Render(remove) + "    " + styles.ok.Render(keep)
}

func (m *Model) renderHistory() string {
	if len(m.history.Items()) == 0 {
		return fmt.Sprintf("%s\nNothing reviewed yet.\n\n%s",
			styles.title.Render("Reviewed this session"),
			m.help.ShortHelpView([]key.Binding{m.keys.history, m.keys.quit}))
	}
	return fmt.Sprintf("%s\n\n%s", m.history.View(), m.help.ShortHelpView([]key.Binding{m.keys.history, m.keys.quit}))
}
