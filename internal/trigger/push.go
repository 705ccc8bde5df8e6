package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// pushMessage is what the notify endpoint sends; only "sync" events are
// acted on, anything else is ignored for forward compatibility.
type pushMessage struct {
	Event string `json:"event"`
}

// pushAck reports one handled event back on the socket.
type pushAck struct {
	Event  string `json:"event"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Push listens for server wake-ups over a websocket and acknowledges
// every sync it runs with its completion status. Lost connections are
// re-dialed with exponential backoff.
type Push struct {
	url     string
	token   string
	handler Handler
	budget  time.Duration
	log     zerolog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewPush builds the push trigger for the given websocket URL.
func NewPush(url, token string, handler Handler, budget time.Duration, log zerolog.Logger) *Push {
	if budget <= 0 {
		budget = time.Minute
	}
	return &Push{
		url:     url,
		token:   token,
		handler: handler,
		budget:  budget,
		log:     log.With().Str("component", "trigger.push").Logger(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the connection loop.
func (p *Push) Start() {
	go p.run()
}

// Stop closes the connection and waits for the loop to exit.
func (p *Push) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}

func (p *Push) run() {
	defer close(p.done)

	retry := newBackoff(time.Second, 2*time.Minute)
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		connected, err := p.listen()
		if err == nil {
			// Clean shutdown requested.
			return
		}
		if connected {
			retry.reset()
		}

		delay := retry.next()
		p.log.Warn().Err(err).Dur("retry_in", delay).Msg("push channel lost")
		select {
		case <-time.After(delay):
		case <-p.stop:
			return
		}
	}
}

// listen runs one connection lifetime: dial, then read events until the
// connection drops or Stop is called. A nil error means Stop; connected
// reports whether the dial succeeded, so the caller can reset its
// backoff after a healthy session.
func (p *Push) listen() (connected bool, err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	dialCtx, dialCancel := context.WithTimeout(ctx, 15*time.Second)
	defer dialCancel()

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if p.token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+p.token)
	}
	conn, _, err := websocket.Dial(dialCtx, p.url, opts)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to dial push endpoint: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")
	p.log.Info().Msg("push channel connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, fmt.Errorf("failed to read push message: %w", err)
		}
		p.handle(ctx, conn, data)
	}
}

func (p *Push) handle(ctx context.Context, conn *websocket.Conn, data []byte) {
	var msg pushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		p.log.Warn().Err(err).Msg("ignoring malformed push message")
		return
	}
	if msg.Event != "sync" {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, p.budget)
	err := p.handler(runCtx)
	cancel()

	ack := pushAck{Event: msg.Event, Status: "ok"}
	if err != nil {
		ack.Status = "failed"
		ack.Error = err.Error()
		p.log.Warn().Err(err).Msg("pushed sync failed")
	}

	payload, _ := json.Marshal(ack)
	writeCtx, writeCancel := context.WithTimeout(ctx, 10*time.Second)
	defer writeCancel()
	if err := conn.Write(writeCtx, websocket.MessageText, payload); err != nil {
		p.log.Warn().Err(err).Msg("failed to acknowledge push")
	}
}
