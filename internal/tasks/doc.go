// package tasks implements the review queue behind the cur8 backend.
//
// The core type is [Curator], which ties the Spotify client to the repositories:
//   - Login exchanges an authorization code (with its PKCE verifier) and stores the user and token pair
//   - Sync pages through /me/tracks and queues every unseen track as pending
//   - Next picks a random pending track, syncing first when the queue is empty
//   - Swipe moves a pending track to kept or removed; removes are mirrored to the Spotify library
//
// Sync emits [ProgressUpdate] values on an optional channel. Sends never block, so a slow or absent reader cannot
// stall the operation.
package tasks
