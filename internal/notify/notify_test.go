package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/quicksip/internal/config"
	"git.home.luguber.info/inful/quicksip/internal/stages"
)

type message struct {
	subject string
	event   Event
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, message{subject: subject, event: ev})
	return nil
}

func newTestNotifier(pub Publisher) *Notifier {
	n := New(pub, "quicksip.pipeline", nil)
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return n
}

func TestNotifierSubjects(t *testing.T) {
	pub := &fakePublisher{}
	n := newTestNotifier(pub)

	n.OnStageStart("web", stages.BuildStyles)
	n.OnStageComplete("web", stages.BuildStyles, 1500*time.Microsecond, stages.ResultWarning)
	n.OnReaction(stages.Reaction{RunID: "r1", Prefix: "web", Stage: stages.CopyResources, Event: "deleted", Path: "app/a/b.png"})

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "quicksip.pipeline.stage.started", pub.msgs[0].subject)
	assert.Equal(t, "quicksip.pipeline.stage.completed", pub.msgs[1].subject)
	assert.Equal(t, "warning", pub.msgs[1].event.Result)
	assert.InDelta(t, 1.5, pub.msgs[1].event.DurationMS, 0.001)

	reaction := pub.msgs[2]
	assert.Equal(t, "quicksip.pipeline.watch.reaction", reaction.subject)
	assert.Equal(t, "deleted", reaction.event.Kind)
	assert.Equal(t, "app/a/b.png", reaction.event.Path)
	assert.Equal(t, "watch", reaction.event.Mode)
}

func TestNotifierBuildOutcome(t *testing.T) {
	pub := &fakePublisher{}
	n := newTestNotifier(pub)
	start := time.Now()

	n.OnBuildComplete(&stages.Report{RunID: "ok", Prefix: "web", Mode: stages.ModeBuild, Start: start, End: start.Add(time.Second), Success: true})
	n.OnBuildComplete(&stages.Report{RunID: "bad", Prefix: "web", Mode: stages.ModeBuild, Start: start, End: start, Err: errors.New("disk full")})
	n.OnBuildComplete(nil)

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "quicksip.pipeline.build.completed", pub.msgs[0].subject)
	assert.InDelta(t, 1000, pub.msgs[0].event.DurationMS, 0.001)
	assert.Equal(t, "quicksip.pipeline.build.failed", pub.msgs[1].subject)
	assert.Equal(t, "disk full", pub.msgs[1].event.Error)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), pub.msgs[1].event.Time)
}

func TestNotifierSwallowsPublishErrors(t *testing.T) {
	n := newTestNotifier(&fakePublisher{err: errors.New("no responders")})
	assert.NotPanics(t, func() { n.OnStageStart("", stages.Clean) })
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(config.NotifyConfig{Subject: "x"}, nil)
	require.Error(t, err)
}

func TestCloseWithoutConnection(t *testing.T) {
	assert.NoError(t, newTestNotifier(&fakePublisher{}).Close())
}
