package bridge

import (
	"fmt"
	"log"
	"time"

	"balatro-bridge/game"
	"balatro-bridge/jsonval"
	"balatro-bridge/protocol"
)

// HostHooks are the host-side collaborators the loop consults each eligible
// tick. They are evaluated fresh every time, never cached.
type HostHooks struct {
	// Observe extracts the current observation. Required.
	Observe func() (*game.Observation, error)
	// AtDecisionPoint reports whether the host currently awaits an
	// externally supplied choice. Required.
	AtDecisionPoint func() bool
	// Settled reports whether animations/event queues have quiesced.
	// Optional; nil means "always settled".
	Settled func() bool
}

// Event is one attempted exchange, published to an optional sink (history
// store, live monitor).
type Event struct {
	At          time.Time
	Phase       game.Phase
	Fingerprint string
	Outcome     Outcome
	ActionType  protocol.Category
	Err         string
	Latency     time.Duration
	Request     string
	Response    string
}

type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeConnectError  Outcome = "connect_error"
	OutcomeExchangeError Outcome = "exchange_error"
	OutcomeProtocolError Outcome = "protocol_error"
)

// EventSink receives exchange events. Publish must not block for long; it
// runs inside the host's tick.
type EventSink interface {
	Publish(ev Event)
}

// exchanger is what the loop needs from the session client.
type exchanger interface {
	Connected() bool
	Connect() error
	Exchange(req jsonval.Value) (jsonval.Value, error)
}

// Loop is the periodic driver. The host calls Tick from its own update
// callback; everything downstream runs synchronously inside that call and
// may stall it for up to the configured transport timeouts. Exchanges are
// rare, throttled events, so the stall is an accepted latency hit.
type Loop struct {
	cfg    Config
	client exchanger
	hooks  HostHooks
	exec   protocol.Executor
	sink   EventSink

	gate  Gate
	accum time.Duration
}

// NewLoop wires the poll loop. sink may be nil.
func NewLoop(cfg Config, client *Client, hooks HostHooks, exec protocol.Executor, sink EventSink) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if hooks.Observe == nil {
		return nil, fmt.Errorf("Observe hook required")
	}
	if hooks.AtDecisionPoint == nil {
		return nil, fmt.Errorf("AtDecisionPoint hook required")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor required")
	}
	return &Loop{cfg: cfg, client: client, hooks: hooks, exec: exec, sink: sink}, nil
}

// ResetGate clears the change gate, forcing a query on the next eligible
// tick. Call when a new run starts.
func (l *Loop) ResetGate() { l.gate.Reset() }

// Tick advances the loop by elapsed host time. It is the single boundary
// between the bridge and the host's update cycle: any panic from a
// collaborator is logged and swallowed here, never propagated — a crash in
// the decision path must not crash the game.
func (l *Loop) Tick(elapsed time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Loop] recovered: %v", r)
		}
	}()

	l.accum += elapsed
	if l.accum < l.cfg.Interval {
		return
	}
	// Reset to zero, not to the remainder: drift is accepted, decision
	// latency tolerance is coarse.
	l.accum = 0
	l.cycle()
}

func (l *Loop) cycle() {
	if !l.hooks.AtDecisionPoint() {
		return
	}
	if l.hooks.Settled != nil && !l.hooks.Settled() {
		return
	}

	obs, err := l.hooks.Observe()
	if err != nil {
		log.Printf("[Loop] observe failed: %v", err)
		return
	}
	if obs == nil {
		return
	}

	fp := Fingerprint(obs)
	if !l.gate.ShouldQuery(fp) {
		return
	}

	if !l.client.Connected() {
		if err := l.client.Connect(); err != nil {
			// Retried on the next eligible tick; the interval is the only
			// backoff.
			log.Printf("[Loop] connect failed: %v", err)
			l.emit(Event{At: time.Now(), Phase: obs.Phase, Fingerprint: fp, Outcome: OutcomeConnectError, Err: err.Error()})
			return
		}
		log.Printf("[Loop] connected to decision server")
	}

	req := obs.Value()
	start := time.Now()
	resp, err := l.client.Exchange(req)
	latency := time.Since(start)
	if err != nil {
		// The gate is NOT committed: a failed exchange must not consume the
		// state-change signal, or this state would never get its answer.
		log.Printf("[Loop] exchange failed: %v", err)
		l.emit(l.event(obs, fp, req, nil, OutcomeExchangeError, "", err, latency))
		return
	}
	l.gate.Commit(fp)

	action, err := protocol.ParseAction(resp)
	if err != nil {
		log.Printf("[Loop] response rejected: %v", err)
		l.emit(l.event(obs, fp, req, resp, OutcomeProtocolError, "", err, latency))
		return
	}

	l.emit(l.event(obs, fp, req, resp, OutcomeOK, action.Type, nil, latency))
	if err := l.exec.Execute(action); err != nil {
		log.Printf("[Loop] executor %s failed: %v", l.exec.Name(), err)
	}
}

func (l *Loop) event(obs *game.Observation, fp string, req, resp jsonval.Value, outcome Outcome, at protocol.Category, err error, latency time.Duration) Event {
	ev := Event{
		At:          time.Now(),
		Phase:       obs.Phase,
		Fingerprint: fp,
		Outcome:     outcome,
		ActionType:  at,
		Latency:     latency,
	}
	if err != nil {
		ev.Err = err.Error()
	}
	if l.sink == nil {
		return ev
	}
	// Wire text is re-rendered only when someone listens.
	if req != nil {
		if s, err := jsonval.Encode(req); err == nil {
			ev.Request = s
		}
	}
	if resp != nil {
		if s, err := jsonval.Encode(resp); err == nil {
			ev.Response = s
		}
	}
	return ev
}

func (l *Loop) emit(ev Event) {
	if l.sink != nil {
		l.sink.Publish(ev)
	}
}
