// Package notify sends fire-and-forget HTTP notifications for loop events.
// The primary use case is ntfy.sh, but any HTTP webhook works.
package notify

import (
	"net/http"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Stoneeu/vibe-kanban/internal/logging"
	"github.com/Stoneeu/vibe-kanban/internal/loop"
)

// DefaultTitle is sent as X-Title when no title is configured.
const DefaultTitle = "vkloop"

// Options selects which loop outcomes trigger a notification.
type Options struct {
	Title       string
	OnComplete  bool // completion promise found
	OnExhausted bool // iteration budget spent
	OnError     bool // agent or loop error
}

// Notifier posts plain-text HTTP notifications for selected loop events.
type Notifier struct {
	url    string
	opts   Options
	client *http.Client
	log    *logging.Logger
	wg     conc.WaitGroup
}

// New creates a Notifier posting to notifURL. A nil logger uses
// logging.Default().
func New(notifURL string, opts Options, logger *logging.Logger) *Notifier {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		url:    notifURL,
		opts:   opts,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}
}

// Hook is a loop.Loop.NotificationHook-compatible function. It fires
// asynchronous POSTs for events that match the configured notification flags.
func (n *Notifier) Hook(entry loop.LogEntry) {
	var send bool
	switch entry.Kind {
	case loop.LogDone:
		send = n.opts.OnComplete
	case loop.LogExhausted:
		send = n.opts.OnExhausted
	case loop.LogError:
		send = n.opts.OnError
	}
	if !send {
		return
	}
	msg := entry.Message
	n.wg.Go(func() { n.post(msg) })
}

// Wait blocks until every notification started by Hook has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// post sends a plain-text POST to the configured URL. Failures are logged
// at debug level and never reach the loop.
func (n *Notifier) post(message string) {
	req, err := http.NewRequest(http.MethodPost, n.url, strings.NewReader(message))
	if err != nil {
		n.log.Debug("notify: build request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Title", n.opts.Title)
	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Debug("notify: post", "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.log.Debug("notify: unexpected status", "status", resp.StatusCode)
	}
}
