// Package notify holds pending cell registrations, races completion events
// against deadlines and dispatches the resulting notification to the
// configured channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/btouchard/nbnotify/internal/events"
)

// Delivery results recorded for each dispatch decision.
const (
	ResultSent       = "sent"
	ResultFailed     = "failed"
	ResultSuppressed = "suppressed"
)

// Resolution triggers.
const (
	TriggerCompletion = "completion"
	TriggerTimeout    = "timeout"
	TriggerDirect     = "direct"
)

// Delivery is one dispatch decision: a channel attempt or a suppression.
type Delivery struct {
	CellID  string
	Mode    Mode
	Status  Status
	Trigger string
	Channel string // empty for suppressions
	Result  string
	Error   string
	At      time.Time
}

// Recorder persists dispatch decisions.
type Recorder interface {
	RecordDelivery(d Delivery) error
}

// Metrics receives engine counters.
type Metrics interface {
	Registered(mode Mode)
	Resolved(trigger string, status Status)
	Delivered(channel, result string)
	DeliveryDuration(channel string, d time.Duration)
	Pending(n int)
}

// Engine accepts registrations and completion events and dispatches
// notifications. All methods are safe for concurrent use.
type Engine struct {
	registry  *Registry
	scheduler Scheduler
	chat      Channel
	mail      Channel

	globalTimeout   time.Duration
	deliveryTimeout time.Duration
	recorder        Recorder
	metrics         Metrics
}

// NewEngine creates an Engine. Nil channels are replaced by NopChannels.
func NewEngine(sched Scheduler, chat, mail Channel) *Engine {
	if sched == nil {
		sched = TimerScheduler{}
	}
	if chat == nil {
		chat = NopChannel{Label: "chat"}
	}
	if mail == nil {
		mail = NopChannel{Label: "mail"}
	}
	return &Engine{
		registry:        NewRegistry(),
		scheduler:       sched,
		chat:            chat,
		mail:            mail,
		deliveryTimeout: 30 * time.Second,
	}
}

// SetGlobalTimeout sets the deadline used by global-timeout registrations
// that carry no threshold of their own.
func (e *Engine) SetGlobalTimeout(d time.Duration) {
	e.globalTimeout = d
}

// SetDeliveryTimeout bounds each channel send.
func (e *Engine) SetDeliveryTimeout(d time.Duration) {
	if d > 0 {
		e.deliveryTimeout = d
	}
}

// SetRecorder sets the sink for dispatch decisions.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// SetMetrics sets the metrics sink.
func (e *Engine) SetMetrics(m Metrics) {
	e.metrics = m
}

// Registry exposes the pending registrations for read-only inspection.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ChatConfigured reports whether a chat channel is wired in.
func (e *Engine) ChatConfigured() bool { return IsConfigured(e.chat) }

// MailConfigured reports whether a mail channel is wired in.
func (e *Engine) MailConfigured() bool { return IsConfigured(e.mail) }

// Register stores req as pending, superseding any earlier registration for
// the same cell, and arms its deadline when one applies.
func (e *Engine) Register(req Request) error {
	req = e.normalize(req)
	if err := req.Validate(); err != nil {
		return err
	}

	ent := &entry{req: req}
	if prev := e.registry.put(ent); prev != nil {
		if prev.timer != nil {
			prev.timer.Cancel()
		}
		slog.Debug("registration superseded", "cell_id", req.CellID)
	}

	if req.Threshold > 0 {
		id, seq := req.CellID, ent.seq
		h := e.scheduler.Schedule(req.Threshold, func() { e.expire(id, seq) })
		if !e.registry.attachTimer(id, seq, h) {
			h.Cancel()
		}
	}

	slog.Info("cell registered",
		"cell_id", req.CellID,
		"mode", string(req.Mode),
		"chat", req.Chat,
		"mail", req.Mail,
		"threshold", req.Threshold)

	if e.metrics != nil {
		e.metrics.Registered(req.Mode)
		e.metrics.Pending(e.registry.Len())
	}
	return nil
}

// OnCompletion resolves a pending cell with the reported outcome. Unknown
// ids (never registered or already resolved) are ignored.
func (e *Engine) OnCompletion(id string, success bool, errorDetail string) {
	ent, ok := e.registry.resolve(id, 0)
	if !ok {
		slog.Debug("completion for unknown cell ignored", "cell_id", id)
		return
	}
	if ent.timer != nil {
		ent.timer.Cancel()
	}
	e.afterResolve()
	e.dispatch(ent.req, Outcome{Success: success, ErrorDetail: errorDetail}, TriggerCompletion)
}

// OnTimeout resolves a pending cell with a timeout outcome.
func (e *Engine) OnTimeout(id string) {
	e.expire(id, 0)
}

// expire is the timer callback. The registry is re-checked so a timer that
// lost the race against a completion, or belongs to a superseded
// registration, does nothing.
func (e *Engine) expire(id string, seq uint64) {
	ent, ok := e.registry.resolve(id, seq)
	if !ok {
		slog.Debug("stale timeout ignored", "cell_id", id)
		return
	}
	e.afterResolve()
	e.dispatch(ent.req, TimeoutOutcome(), TriggerTimeout)
}

// TriggerDirect dispatches immediately with an explicit outcome, bypassing
// the registry and timers.
func (e *Engine) TriggerDirect(req Request, o Outcome) error {
	req = e.normalize(req)
	if err := req.ValidateTrigger(); err != nil {
		return err
	}
	e.dispatch(req, o, TriggerDirect)
	return nil
}

// HandleEvent is the event-source listener. Only execution_end events are
// acted upon.
func (e *Engine) HandleEvent(ev events.Event) {
	if !ev.IsCellExecution() {
		slog.Debug("event from foreign schema ignored", "schema_id", ev.SchemaID)
		return
	}
	if ev.EventType != events.TypeExecutionEnd {
		return
	}
	if ev.CellID == "" {
		slog.Debug("execution event without cell id ignored")
		return
	}
	detail := ""
	if ev.KernelError != nil {
		detail = *ev.KernelError
	}
	e.OnCompletion(ev.CellID, ev.Success, detail)
}

// Shutdown cancels every pending timer and drops all registrations.
func (e *Engine) Shutdown() {
	for _, id := range e.registry.IDs() {
		e.registry.Remove(id)
	}
	if e.metrics != nil {
		e.metrics.Pending(0)
	}
}

// normalize canonicalizes the mode and fills in the global deadline. An
// unparsable mode is left as is for Validate to reject.
func (e *Engine) normalize(req Request) Request {
	if m, err := ParseMode(string(req.Mode)); err == nil {
		req.Mode = m
	}
	if req.Mode == ModeGlobalTimeout && req.Threshold == 0 {
		req.Threshold = e.globalTimeout
	}
	return req
}

func (e *Engine) afterResolve() {
	if e.metrics != nil {
		e.metrics.Pending(e.registry.Len())
	}
}

// dispatch applies the policy and fans the message out. It is always called
// without holding the registry lock and waits for every send to finish.
func (e *Engine) dispatch(req Request, o Outcome, trigger string) {
	status := o.Status()
	if e.metrics != nil {
		e.metrics.Resolved(trigger, status)
	}

	if !ShouldNotify(req.Mode, o) {
		slog.Info("notification suppressed",
			"cell_id", req.CellID,
			"mode", string(req.Mode),
			"status", string(status),
			"trigger", trigger)
		e.record(Delivery{
			CellID:  req.CellID,
			Mode:    req.Mode,
			Status:  status,
			Trigger: trigger,
			Result:  ResultSuppressed,
		})
		if e.metrics != nil {
			e.metrics.Delivered("", ResultSuppressed)
		}
		return
	}

	text := Compose(req, o)

	var targets []Channel
	if req.Chat {
		targets = append(targets, e.chat)
	}
	if req.Mail {
		targets = append(targets, e.mail)
	}
	if len(targets) == 0 {
		slog.Debug("no channel enabled for cell", "cell_id", req.CellID)
		return
	}

	var wg sync.WaitGroup
	for _, ch := range targets {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			e.deliver(ch, req, status, trigger, text)
		}(ch)
	}
	wg.Wait()
}

// deliver sends through one channel. Errors and panics stop here.
func (e *Engine) deliver(ch Channel, req Request, status Status, trigger, text string) {
	d := Delivery{
		CellID:  req.CellID,
		Mode:    req.Mode,
		Status:  status,
		Trigger: trigger,
		Channel: ch.Name(),
		Result:  ResultSent,
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("channel panicked",
				"cell_id", req.CellID,
				"channel", ch.Name(),
				"panic", r)
			d.Result = ResultFailed
			d.Error = fmt.Sprintf("panic: %v", r)
		}
		e.record(d)
		if e.metrics != nil {
			e.metrics.Delivered(d.Channel, d.Result)
			e.metrics.DeliveryDuration(d.Channel, time.Since(start))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.deliveryTimeout)
	defer cancel()

	if err := ch.Send(ctx, text); err != nil {
		slog.Warn("notification delivery failed",
			"cell_id", req.CellID,
			"channel", ch.Name(),
			"error", err)
		d.Result = ResultFailed
		d.Error = err.Error()
		return
	}

	slog.Info("notification sent",
		"cell_id", req.CellID,
		"channel", ch.Name(),
		"status", string(status))
}

func (e *Engine) record(d Delivery) {
	if e.recorder == nil {
		return
	}
	d.At = time.Now()
	if err := e.recorder.RecordDelivery(d); err != nil {
		slog.Warn("failed to record delivery", "cell_id", d.CellID, "error", err)
	}
}
