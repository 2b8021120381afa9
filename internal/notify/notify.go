// Package notify publishes pipeline lifecycle events to NATS.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/quicksip/internal/config"
	"git.home.luguber.info/inful/quicksip/internal/stages"
)

// Event types, appended to the configured subject.
const (
	EventStageStarted   = "stage.started"
	EventStageCompleted = "stage.completed"
	EventBuildCompleted = "build.completed"
	EventBuildFailed    = "build.failed"
	EventWatchReaction  = "watch.reaction"
)

// Event is the JSON payload of every published message.
type Event struct {
	Type       string    `json:"type"`
	Time       time.Time `json:"time"`
	Prefix     string    `json:"prefix"`
	RunID      string    `json:"run_id,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Result     string    `json:"result,omitempty"`
	Path       string    `json:"path,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	DurationMS float64   `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Publisher is the part of *nats.Conn the notifier uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier is a stages.Observer that publishes each callback as an Event on
// "<subject>.<type>". Publish failures are logged and never reach the pipeline.
type Notifier struct {
	pub     Publisher
	subject string
	logger  *slog.Logger
	conn    *nats.Conn
	now     func() time.Time
}

var _ stages.Observer = (*Notifier)(nil)

// New returns a notifier publishing through pub.
func New(pub Publisher, subject string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, subject: subject, logger: logger, now: time.Now}
}

// Connect dials the NATS server named in cfg.
func Connect(cfg config.NotifyConfig, logger *slog.Logger) (*Notifier, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("notify: no NATS url configured")
	}
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("quicksip"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	n := New(conn, cfg.Subject, logger)
	n.conn = conn
	n.logger.Info("NATS notifications enabled", "url", cfg.NATSURL, "subject", cfg.Subject)
	return n, nil
}

// Close flushes pending messages and closes the connection, if Connect opened one.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.Drain()
	if err != nil {
		n.conn.Close()
	}
	return err
}

func (n *Notifier) publish(ev Event) {
	ev.Time = n.now()
	data, err := json.Marshal(ev)
	if err != nil {
		n.logger.Warn("Failed to encode notification", "type", ev.Type, "error", err)
		return
	}
	subject := n.subject + "." + ev.Type
	if err := n.pub.Publish(subject, data); err != nil {
		n.logger.Warn("Failed to publish notification", "subject", subject, "error", err)
		return
	}
	n.logger.Debug("Published notification", "subject", subject)
}

func (n *Notifier) OnStageStart(prefix string, stage stages.Name) {
	n.publish(Event{Type: EventStageStarted, Prefix: prefix, Stage: string(stage)})
}

func (n *Notifier) OnStageComplete(prefix string, stage stages.Name, d time.Duration, result stages.Result) {
	n.publish(Event{
		Type:       EventStageCompleted,
		Prefix:     prefix,
		Stage:      string(stage),
		Result:     string(result),
		DurationMS: durationMS(d),
	})
}

func (n *Notifier) OnBuildComplete(report *stages.Report) {
	if report == nil {
		return
	}
	ev := Event{
		Type:       EventBuildCompleted,
		Prefix:     report.Prefix,
		RunID:      report.RunID,
		Mode:       string(report.Mode),
		DurationMS: durationMS(report.Duration()),
	}
	if !report.Success {
		ev.Type = EventBuildFailed
		if report.Err != nil {
			ev.Error = report.Err.Error()
		}
	}
	n.publish(ev)
}

func (n *Notifier) OnReaction(r stages.Reaction) {
	ev := Event{
		Type:       EventWatchReaction,
		Prefix:     r.Prefix,
		RunID:      r.RunID,
		Mode:       string(stages.ModeWatch),
		Stage:      string(r.Stage),
		Kind:       r.Event,
		Path:       r.Path,
		DurationMS: durationMS(r.Duration),
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	n.publish(ev)
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
