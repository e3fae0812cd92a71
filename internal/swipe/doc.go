// Package swipe holds the review screen's logic, independent of how it is drawn.
//
// # Orchestrator
//
// [Orchestrator] owns the displayed track and sequences a decision through its lifecycle:
//
//	idle -> track-shown -> deciding -> exiting -> confirming -> idle
//
// A decision is recorded by [Orchestrator.Decide] while the card stays on screen so the renderer can paint the exit
// direction. The renderer then calls [Orchestrator.Detach], and once the exit animation has finished the decision is
// confirmed with the backend exactly once. A failed fetch or confirmation lands in the error phase; nothing is
// fetched again until [Orchestrator.Retry].
//
// Every network step is split into a Begin/Finish pair so an event loop can run the call elsewhere and feed the
// result back. Results carry the generation they were started in; after [Orchestrator.Close] they are ignored.
// [Orchestrator.LoadNext] and [Orchestrator.ExitComplete] run the same steps synchronously against a [TrackSource].
//
// # Card
//
// [Card] is the drag gesture: a horizontal offset plus recent samples for release velocity. [Card.Release] turns a
// drag into a keep or remove decision, or snaps back. [Exit] describes the fly-out animation for a direction.
package swipe
