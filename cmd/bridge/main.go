// Command bridge runs the decision-support bridge as a standalone process.
// Observations arrive as JSON lines on stdin (one snapshot per line, the
// same shape the wire uses); recommendations are printed and optionally
// fanned out to the history store and the live monitor.
package main

import (
	"bufio"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"balatro-bridge/bridge"
	"balatro-bridge/game"
	"balatro-bridge/internal/history"
	"balatro-bridge/internal/monitor"
	"balatro-bridge/jsonval"
	"balatro-bridge/protocol"
)

func main() {
	// Setup path: "bridge hash-token <token>" prints the bcrypt hash to put
	// in MONITOR_TOKEN_HASH, then exits.
	if len(os.Args) > 1 && os.Args[1] == "hash-token" {
		if len(os.Args) != 3 {
			log.Fatalf("[Bridge] usage: bridge hash-token <token>")
		}
		hash, err := monitor.HashToken(os.Args[2])
		if err != nil {
			log.Fatalf("[Bridge] hash token failed: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := bridge.ConfigFromEnv()
	if err != nil {
		log.Fatalf("[Bridge] invalid configuration: %v", err)
	}

	historyService, historyMode, err := history.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Bridge] failed to init history service: %v", err)
	}
	defer historyService.Close()

	sinks := []bridge.EventSink{history.AsSink(historyService)}

	monitorAddr := strings.TrimSpace(os.Getenv("MONITOR_ADDR"))
	if monitorAddr != "" {
		hub := monitor.NewHub(monitor.NewTokenGuardFromEnv(), historyService)
		sinks = append(sinks, hub)

		mux := http.NewServeMux()
		hub.Routes(mux)
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		go func() {
			log.Printf("[Bridge] monitor listening on %s", monitorAddr)
			if err := http.ListenAndServe(monitorAddr, mux); err != nil {
				log.Fatalf("[Bridge] monitor server failed: %v", err)
			}
		}()
	}

	feed := newObservationFeed()
	client := bridge.NewClient(bridge.NewConn(cfg.Host, cfg.Port, cfg.ConnectTimeout, cfg.IOTimeout))
	defer client.Close()

	loop, err := bridge.NewLoop(cfg, client, bridge.HostHooks{
		Observe:         feed.latest,
		AtDecisionPoint: feed.atDecisionPoint,
	}, &printExecutor{}, multiSink(sinks))
	if err != nil {
		log.Fatalf("[Bridge] failed to wire loop: %v", err)
	}

	log.Printf("[Bridge] history mode: %s", historyMode)
	log.Printf("[Bridge] decision server: %s:%d, interval %v", cfg.Host, cfg.Port, cfg.Interval)

	go feed.readStdin()

	// The ticker stands in for the host's update callback. Ticks and
	// observation swaps run on this one goroutine, preserving the
	// single-threaded model the loop assumes.
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case obs, ok := <-feed.updates:
			if !ok {
				log.Printf("[Bridge] observation feed closed, exiting")
				return
			}
			feed.current = obs
		case now := <-ticker.C:
			loop.Tick(now.Sub(last))
			last = now
		}
	}
}

// observationFeed turns stdin JSON lines into the loop's observation source.
type observationFeed struct {
	updates chan *game.Observation
	current *game.Observation
}

func newObservationFeed() *observationFeed {
	return &observationFeed{updates: make(chan *game.Observation, 16)}
}

func (f *observationFeed) latest() (*game.Observation, error) {
	return f.current, nil
}

func (f *observationFeed) atDecisionPoint() bool {
	return f.current != nil && f.current.Phase.DecisionPoint()
}

func (f *observationFeed) readStdin() {
	defer close(f.updates)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := jsonval.Decode(line)
		if err != nil {
			log.Printf("[Bridge] bad observation line: %v", err)
			continue
		}
		obs, err := game.ParseObservation(v)
		if err != nil {
			log.Printf("[Bridge] bad observation shape: %v", err)
			continue
		}
		f.updates <- obs
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[Bridge] stdin read failed: %v", err)
	}
}

// printExecutor logs recommendations instead of driving a host UI.
type printExecutor struct{}

func (p *printExecutor) Name() string { return "print" }

func (p *printExecutor) Execute(a protocol.Action) error {
	switch a.Type {
	case protocol.ActionPlay, protocol.ActionDiscard:
		log.Printf("[Executor] %s cards %v (%s)", a.Type, a.CardIndices, a.Reasoning)
	case protocol.ActionShop:
		if a.BuyIndex != nil {
			log.Printf("[Executor] shop: buy slot %d (%s)", *a.BuyIndex, a.Reasoning)
		} else if a.Reroll {
			log.Printf("[Executor] shop: reroll (%s)", a.Reasoning)
		} else {
			log.Printf("[Executor] shop: leave (%s)", a.Reasoning)
		}
	case protocol.ActionBlind:
		if a.Skip {
			log.Printf("[Executor] blind: skip (%s)", a.Reasoning)
		} else {
			log.Printf("[Executor] blind: select (%s)", a.Reasoning)
		}
	case protocol.ActionPack:
		log.Printf("[Executor] pack: pick %v, skip=%v (%s)", a.CardIndices, a.Skip, a.Reasoning)
	case protocol.ActionUseConsumable:
		if a.ConsumableIndex != nil {
			log.Printf("[Executor] use consumable %d on %v (%s)", *a.ConsumableIndex, a.CardIndices, a.Reasoning)
		}
	case protocol.ActionWait:
		log.Printf("[Executor] wait (%s)", a.Reasoning)
	}
	return nil
}

// multiSink fans one event out to every configured sink.
type multiSink []bridge.EventSink

func (m multiSink) Publish(ev bridge.Event) {
	for _, s := range m {
		s.Publish(ev)
	}
}
