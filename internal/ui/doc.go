// Package ui implements the interactive review screen using bubbletea's Elm architecture.
//
// The views follow the session state:
//  1. [CheckingView] : A saved session is being verified
//  2. [LoginView] : Browser login with Spotify
//  3. [SwipeView] : One track card at a time, kept or removed
//  4. [HistoryView] : Tracks reviewed in this session
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg
// union type. Network calls run as commands and report back tagged with the [swipe.Orchestrator] that issued them, so
// results arriving after logout or quit are dropped. The exit animation is driven by frame ticks: the first frame
// after a decision detaches the card, and the frame that completes the animation triggers the confirmation.
//
// The card is dragged with h/l (or arrows) and released with space; a and d are the Remove and Keep buttons.
// Contextual help is displayed via charmbracelet/bubbles/help.
package ui
