// Package checker owns the outdated-package state and decides when brew is
// asked for it.
//
// All state lives on a single coordination goroutine. Commands (Start, Stop,
// CheckNow, Reschedule, UpdateResults), timer fires, streamed brew lines and
// check completions are all delivered to that goroutine as closures, so state
// is only ever replaced as a whole and observers never see a partial update.
// brew itself runs on a separate goroutine per check.
//
// Example:
//
//	c := checker.New(brew.NewService(), st, checker.WithLogger(log))
//	defer c.Close()
//
//	c.Subscribe(func(s checker.State) {
//		fmt.Println(s.TotalCount(), "outdated")
//	})
//	c.Start()
package checker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/schedule"
)

// Fetcher runs one outdated check. *brew.Service implements it.
type Fetcher interface {
	FetchOutdated(ctx context.Context, onLine func(string)) (*brew.Outdated, error)
}

// Settings supplies the values read at every reschedule and every check
// completion. *settings.Settings implements it.
type Settings interface {
	Schedule() schedule.Config
	IgnoredPackages() []string
}

// Timer is a pending scheduled fire. *time.Timer implements it.
type Timer interface {
	Stop() bool
}

// AfterFunc arms a one-shot timer. It defaults to time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// State is the published checker state. A new value is built on every
// transition; values handed to observers are never modified afterwards.
type State struct {
	LastResult *brew.Outdated // nil until the first successful check
	IsChecking bool
	LastError  string    // cleared when the next check starts
	CheckedAt  time.Time // completion time of the last check attempt
}

// TotalCount returns the number of outdated packages in LastResult.
func (s State) TotalCount() int {
	return s.LastResult.TotalCount()
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for transitions and streamed brew output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Checker) { c.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// WithAfterFunc replaces time.AfterFunc for arming the schedule timer.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Checker) { c.afterFunc = fn }
}

type stateSub struct {
	id int
	fn func(State)
}

type lineSub struct {
	id int
	fn func(string)
}

// Checker schedules outdated checks and publishes their results.
type Checker struct {
	fetcher   Fetcher
	settings  Settings
	log       logrus.FieldLogger
	now       func() time.Time
	afterFunc AfterFunc

	cmds     chan func()
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	inflight sync.WaitGroup
	closing  sync.Once

	// Owned by the coordination goroutine.
	state     State
	timer     Timer
	timerGen  uint64
	stateSubs []stateSub
	lineSubs  []lineSub
	nextSubID int

	// Copies for readers on other goroutines.
	mu       sync.RWMutex
	snapshot State
	nextFire time.Time
}

// New creates a Checker and starts its coordination goroutine. No check runs
// and no timer is armed until Start or CheckNow is called. Call Close to
// release it.
func New(fetcher Fetcher, settings Settings, opts ...Option) *Checker {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Checker{
		fetcher:  fetcher,
		settings: settings,
		log:      logrus.StandardLogger(),
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		cmds:     make(chan func(), 64),
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.loop()
	return c
}

func (c *Checker) loop() {
	defer close(c.loopDone)
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.ctx.Done():
			c.cancelTimer()
			return
		}
	}
}

// post queues fn for the coordination goroutine. It reports false once the
// Checker is closed.
func (c *Checker) post(fn func()) bool {
	select {
	case c.cmds <- fn:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// call runs fn on the coordination goroutine and waits for it. Observers run
// on that goroutine too, so they must not call back into the Checker
// synchronously.
func (c *Checker) call(fn func()) bool {
	done := make(chan struct{})
	if !c.post(func() { fn(); close(done) }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-c.loopDone:
		return false
	}
}

// Start arms the schedule timer from the current settings and immediately
// requests one check. Calling Start twice without Stop in between is the
// caller's responsibility; the second call replaces the pending timer.
func (c *Checker) Start() {
	c.call(func() {
		c.cancelTimer()
		c.armTimer()
		c.beginCheck("startup")
	})
}

// Stop cancels the pending timer. A check already in flight keeps running
// and its result is still published.
func (c *Checker) Stop() {
	c.call(c.cancelTimer)
}

// CheckNow requests an immediate check. While a check is in flight this is a
// no-op: the request coalesces onto the running check and brew is not run a
// second time.
func (c *Checker) CheckNow() {
	c.call(func() { c.beginCheck("manual") })
}

// Reschedule cancels the pending timer and re-arms it from the current
// settings. Call it whenever the schedule settings change.
func (c *Checker) Reschedule() {
	c.call(func() {
		c.cancelTimer()
		c.armTimer()
	})
}

// UpdateResults publishes a result produced elsewhere, e.g. by a foreground
// check that showed its own progress. The result must already be filtered
// against the ignore list.
func (c *Checker) UpdateResults(result *brew.Outdated) {
	c.call(func() {
		next := c.state
		next.LastResult = result
		next.CheckedAt = c.now()
		c.publish(next)
	})
}

// State returns the most recently published state.
func (c *Checker) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// NextFire returns when the schedule timer is due, or the zero time when no
// timer is armed.
func (c *Checker) NextFire() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nextFire
}

// Subscribe registers fn for every state transition. fn runs on the
// coordination goroutine and must not block. The returned func unregisters it.
func (c *Checker) Subscribe(fn func(State)) (cancel func()) {
	var id int
	c.call(func() {
		c.nextSubID++
		id = c.nextSubID
		c.stateSubs = append(c.stateSubs, stateSub{id: id, fn: fn})
	})
	return func() {
		c.call(func() {
			for i, s := range c.stateSubs {
				if s.id == id {
					c.stateSubs = append(c.stateSubs[:i], c.stateSubs[i+1:]...)
					return
				}
			}
		})
	}
}

// SubscribeLines registers fn for brew's progress lines during scheduled and
// manual checks, in the order brew produced them.
func (c *Checker) SubscribeLines(fn func(string)) (cancel func()) {
	var id int
	c.call(func() {
		c.nextSubID++
		id = c.nextSubID
		c.lineSubs = append(c.lineSubs, lineSub{id: id, fn: fn})
	})
	return func() {
		c.call(func() {
			for i, s := range c.lineSubs {
				if s.id == id {
					c.lineSubs = append(c.lineSubs[:i], c.lineSubs[i+1:]...)
					return
				}
			}
		})
	}
}

// Close cancels the pending timer and any in-flight check, then waits for
// the Checker's goroutines to exit. brew is interrupted but not guaranteed to
// terminate.
func (c *Checker) Close() {
	c.closing.Do(func() {
		c.cancel()
		<-c.loopDone
		c.inflight.Wait()
	})
}

func (c *Checker) publish(next State) {
	c.state = next

	c.mu.Lock()
	c.snapshot = next
	c.mu.Unlock()

	for _, s := range c.stateSubs {
		s.fn(next)
	}
}

func (c *Checker) emitLine(line string) {
	for _, s := range c.lineSubs {
		s.fn(line)
	}
}

func (c *Checker) beginCheck(trigger string) {
	if c.state.IsChecking {
		c.log.WithField("trigger", trigger).Debug("check already in progress")
		return
	}

	log := c.log.WithFields(logrus.Fields{
		"check_id": uuid.NewString(),
		"trigger":  trigger,
	})

	next := c.state
	next.IsChecking = true
	next.LastError = ""
	c.publish(next)
	log.Info("check started")

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		result, err := c.fetcher.FetchOutdated(c.ctx, func(line string) {
			c.post(func() {
				log.Debug(line)
				c.emitLine(line)
			})
		})
		c.post(func() { c.finishCheck(log, result, err) })
	}()
}

func (c *Checker) finishCheck(log logrus.FieldLogger, result *brew.Outdated, err error) {
	next := State{
		LastResult: c.state.LastResult,
		CheckedAt:  c.now(),
	}

	if err != nil {
		next.LastError = err.Error()
		log.WithError(err).Warn("check failed")
	} else {
		if result == nil {
			result = &brew.Outdated{}
		}
		ignored := c.settings.IgnoredPackages()
		next.LastResult = result.Filter(ignored)
		log.WithFields(logrus.Fields{
			"formulae": len(next.LastResult.Formulae),
			"casks":    len(next.LastResult.Casks),
			"ignored":  result.TotalCount() - next.LastResult.TotalCount(),
		}).Info("check finished")
	}

	c.publish(next)
}

// Delay returns how long to wait before the next scheduled check.
func Delay(cfg schedule.Config, now time.Time) time.Duration {
	if cfg.Mode == schedule.ModeDaily {
		return schedule.UntilNextDaily(now, cfg.DailyStartHour)
	}
	return cfg.Interval()
}

// armTimer arms a one-shot timer. Each fire re-arms from the then-current
// settings, so interval mode recurs and daily mode renews itself for the
// following day.
func (c *Checker) armTimer() {
	cfg := c.settings.Schedule()
	now := c.now()
	delay := Delay(cfg, now)

	c.timerGen++
	gen := c.timerGen
	c.timer = c.afterFunc(delay, func() {
		c.post(func() { c.fire(gen) })
	})
	c.setNextFire(now.Add(delay))

	c.log.WithFields(logrus.Fields{
		"mode": cfg.Mode,
		"next": now.Add(delay).Format(time.RFC3339),
	}).Info("next check scheduled")
}

func (c *Checker) fire(gen uint64) {
	// A fire queued before Stop or Reschedule is stale.
	if gen != c.timerGen || c.timer == nil {
		return
	}
	c.timer = nil
	c.armTimer()
	c.beginCheck("schedule")
}

func (c *Checker) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
	c.setNextFire(time.Time{})
}

func (c *Checker) setNextFire(t time.Time) {
	c.mu.Lock()
	c.nextFire = t
	c.mu.Unlock()
}
