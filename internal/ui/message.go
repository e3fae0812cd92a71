package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/swipe"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionChecked MsgKind = iota
	MsgLoginPrompt
	MsgLoggedIn
	MsgLoggedOut
	MsgTrackLoaded
	MsgSwipeConfirmed
	MsgFrame
)

type userResult struct {
	user *models.User
	err  error
}

type loginPrompt struct {
	url     string
	openErr error
}

// trackLoaded carries a fetch result back to the orchestrator that started it.
type trackLoaded struct {
	orch       *swipe.Orchestrator
	generation uint64
	track      *models.Track
	err        error
}

type swipeConfirmed struct {
	orch       *swipe.Orchestrator
	generation uint64
	decision   swipe.Decision
	err        error
}

// sessionCheckedMsg is the constructor for [MsgSessionChecked]
func sessionCheckedMsg(user *models.User, err error) Msg {
	return Msg{kind: MsgSessionChecked, data: userResult{user, err}}
}

// loginPromptMsg is the constructor for [MsgLoginPrompt]
func loginPromptMsg(url string, openErr error) Msg {
	return Msg{kind: MsgLoginPrompt, data: loginPrompt{url, openErr}}
}

// loggedInMsg is the constructor for [MsgLoggedIn]
func loggedInMsg(user *models.User, err error) Msg {
	return Msg{kind: MsgLoggedIn, data: userResult{user, err}}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}

// trackLoadedMsg is the constructor for [MsgTrackLoaded]
func trackLoadedMsg(orch *swipe.Orchestrator, generation uint64, track *models.Track, err error) Msg {
	return Msg{kind: MsgTrackLoaded, data: trackLoaded{orch, generation, track, err}}
}

// swipeConfirmedMsg is the constructor for [MsgSwipeConfirmed]
func swipeConfirmedMsg(orch *swipe.Orchestrator, generation uint64, decision swipe.Decision, err error) Msg {
	return Msg{kind: MsgSwipeConfirmed, data: swipeConfirmed{orch, generation, decision, err}}
}

// frameMsg is the constructor for [MsgFrame]
func frameMsg(t time.Time) Msg {
	return Msg{kind: MsgFrame, data: t}
}
