package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/cur8/internal/shared"
)

// LoopbackResult is what the browser handed back to the terminal client after a login.
type LoopbackResult struct {
	Session string
	err     error
}

func (o *LoopbackResult) Error() error {
	return o.err
}

// LoopbackHandler receives the redirect the backend issues after a successful Spotify login.
//
// The terminal client serves it on a loopback port and passes that URL (with a random nonce) as the login's
// return_to; the backend appends the signed session value. Only the first request is processed.
type LoopbackHandler struct {
	nonce       string
	resultChan  chan LoopbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewLoopbackHandler creates a handler expecting nonce. The nonce should be cryptographically random.
func NewLoopbackHandler(nonce string) *LoopbackHandler {
	return &LoopbackHandler{
		nonce:      nonce,
		resultChan: make(chan LoopbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *LoopbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates the nonce and captures the session value.
func (h *LoopbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("nonce") != h.nonce {
		h.Send(LoopbackResult{err: fmt.Errorf("%w: nonce mismatch", shared.ErrInvalidState)})
		http.Error(w, "Invalid nonce", http.StatusBadRequest)
		return
	}

	session := q.Get("session")
	if session == "" {
		h.Send(LoopbackResult{err: fmt.Errorf("%w: no session returned", shared.ErrAuthFailed)})
		http.Error(w, "Login failed", http.StatusBadRequest)
		return
	}

	h.Send(LoopbackResult{Session: session})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>cur8: Logged in</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Logged in to cur8</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the result through the channel (only once).
func (h *LoopbackHandler) Send(result LoopbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel. It receives exactly one result and is then closed.
func (h *LoopbackHandler) Result() <-chan LoopbackResult {
	return h.resultChan
}
