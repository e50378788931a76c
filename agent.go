package heartbeat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xtreemfs/heartbeat-agent/internal/hblog"
	"golang.org/x/sync/errgroup"
)

// Config bundles everything the agent needs at construction time.
type Config struct {
	UUID     string
	Client   DIRClient
	Generator ServiceGenerator
	Endpoint EndpointConfig
	// ConfigurationData is published once by the configuration publisher (D).
	ConfigurationData map[string]string
	Bus               EventBus
	Logger            *hblog.Logger

	UpdateInterval        time.Duration
	ConflictRetryInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.UpdateInterval == 0 {
		c.UpdateInterval = time.Duration(DefaultUpdateIntervalMillis) * time.Millisecond
	}
	if c.ConflictRetryInterval == 0 {
		c.ConflictRetryInterval = time.Duration(DefaultConflictRetryIntervalMillis) * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = hblog.New(hblog.Options{})
	}
}

// Agent is the Service Heartbeat Agent (§1). One instance exists per service
// process; it is created once, initialized once, started once, and shut down
// once.
type Agent struct {
	cfg Config

	registrar     *serviceRegistrar
	addrRegistrar *addressRegistrar
	cfgPublisher  *configPublisher

	pause   *pauseGate
	renewal *renewalFlag
	wake    *wakeCondition
	quit    *quitFlag

	mu                 sync.RWMutex
	lastHeartbeat      time.Time
	advertisedHostName string

	cancelWorker context.CancelFunc
	workerDone   chan struct{}
}

// New constructs an Agent. It performs no I/O; call Initialize to perform
// the first registration.
func New(cfg Config) *Agent {
	cfg.applyDefaults()
	base := cfg.Logger
	registrarLog := base.With(hblog.Fields{"component": "service_registrar"})
	addrLog := base.With(hblog.Fields{"component": "address_registrar"})
	cfgLog := base.With(hblog.Fields{"component": "config_publisher"})
	cfg.Logger = base.With(hblog.Fields{"component": "agent"})

	a := &Agent{
		cfg:           cfg,
		registrar:     newServiceRegistrar(cfg.Client, registrarLog),
		addrRegistrar: newAddressRegistrar(cfg.Client, addrLog),
		cfgPublisher:  newConfigPublisher(cfg.Client, cfgLog),
		pause:         newPauseGate(),
		renewal:       &renewalFlag{},
		wake:          newWakeCondition(),
		quit:          &quitFlag{},
	}
	installSignalHandler(a)
	return a
}

// Initialize blocks until the first service registration succeeds (§4.1).
// Conflicts are retried unconditionally at ConflictRetryInterval; any other
// error is returned as a fatal initialization failure.
func (a *Agent) Initialize(ctx context.Context) error {
	services, err := a.cfg.Generator.GenerateServices()
	if err != nil {
		return err
	}

	for _, svc := range services {
		err := retryUnconditionally(ctx, a.cfg.ConflictRetryInterval, IsConflict, func() error {
			_, regErr := a.registrar.register(ctx, svc, UnboundedRetries)
			return regErr
		})
		if err != nil {
			return err
		}
		a.setLastHeartbeat(timeNow())
	}

	// Address-mapping registration and configuration publish are
	// independent once the first service registration has returned;
	// run them concurrently via errgroup (SPEC_FULL.md §11 "Concurrent
	// sub-initialization"). Both are best-effort during Initialize:
	// neither sub-step's error is returned, only logged.
	if len(services) > 0 {
		var g errgroup.Group
		g.Go(func() error {
			host, err := a.addrRegistrar.register(ctx, a.cfg.Endpoint, services[0].UUID, UnboundedRetries)
			if err != nil {
				a.cfg.Logger.Warn("initial address-mapping registration failed", hblog.Fields{"error": err})
				return nil
			}
			a.setAdvertisedHostName(host)
			return nil
		})
		g.Go(func() error {
			a.cfgPublisher.publish(ctx, services[0].UUID, a.cfg.ConfigurationData)
			return nil
		})
		_ = g.Wait()
	}

	return nil
}

// Start launches the worker goroutine and returns immediately.
func (a *Agent) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	a.cancelWorker = cancel
	a.workerDone = make(chan struct{})

	go func() {
		defer close(a.workerDone)
		publish(a.cfg.Bus, EventStarted, a.cfg.UUID, nil)

		err := a.run(workerCtx)
		if err != nil {
			publish(a.cfg.Bus, EventCrashed, a.cfg.UUID, err)
			return
		}
		publish(a.cfg.Bus, EventStopped, a.cfg.UUID, nil)
	}()
}

// run is the periodic loop described in §4.1.
func (a *Agent) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	for {
		if interrupted := a.pause.waitWhileRequested(ctx.Done()); interrupted {
			a.quit.trigger()
			return nil
		}

		a.pause.setPaused(false)

		services, genErr := a.cfg.Generator.GenerateServices()
		if genErr != nil {
			a.cfg.Logger.Error("service generator failed", hblog.Fields{"error": genErr})
		} else {
			for _, svc := range services {
				_, regErr := a.registrar.register(ctx, svc, 1)
				switch {
				case regErr == nil:
					a.setLastHeartbeat(timeNow())
				case IsConflict(regErr):
					a.cfg.Logger.Info("concurrent modification during registration, will retry next tick", hblog.Fields{"uuid": svc.UUID})
				case ctx.Err() != nil:
					a.quit.trigger()
					return nil
				default:
					a.cfg.Logger.Error("service registration failed", hblog.Fields{"uuid": svc.UUID, "error": regErr})
				}
			}
		}

		if a.renewal.takeIfSet() {
			uuid := a.cfg.UUID
			if len(services) > 0 {
				uuid = services[0].UUID
			}
			host, addrErr := a.addrRegistrar.register(ctx, a.cfg.Endpoint, uuid, 1)
			switch {
			case addrErr == nil:
				a.setAdvertisedHostName(host)
			case ctx.Err() != nil:
				a.quit.trigger()
			default:
				a.cfg.Logger.Error("address-mapping renewal failed, will retry next tick", hblog.Fields{"error": addrErr})
				a.renewal.arm()
			}
		}

		if a.quit.isSet() {
			return nil
		}

		a.pause.setPaused(true)

		if !a.renewal.isSet() {
			timer := time.NewTimer(a.cfg.UpdateInterval)
			select {
			case <-timer.C:
			case <-a.wake.channel():
				timer.Stop()
			}
			// Per §9's resolved Open Question: context cancellation observed
			// during this particular sleep is deliberately not selected on
			// here. Quit is re-checked at the top of the next iteration.
		}

		if a.quit.isSet() {
			return nil
		}
	}
}

func recoverToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{value: r}
}

type panicError struct{ value interface{} }

func (p *panicError) Error() string {
	return fmt.Sprintf("heartbeat worker panicked: %v", p.value)
}

// Shutdown attempts a best-effort offline RPC, sets quit, and wakes the
// worker. It is idempotent and safe to call from any goroutine.
func (a *Agent) Shutdown(ctx context.Context) {
	if a.cfg.Client != nil {
		if err := a.cfg.Client.ServiceOffline(ctx, a.cfg.UUID, 5*time.Second); err != nil {
			a.cfg.Logger.Warn("best-effort service_offline failed", hblog.Fields{"uuid": a.cfg.UUID, "error": err})
		}
	}
	a.quit.trigger()
	a.wake.wake()
	if a.cancelWorker != nil {
		a.cancelWorker()
	}
}

// PauseOperation blocks until the worker is idle (not mid-RPC).
func (a *Agent) PauseOperation() {
	a.pause.requestPause()
	a.pause.awaitIdle()
}

// ResumeOperation decrements the pause counter; it never blocks.
func (a *Agent) ResumeOperation() {
	a.pause.resume()
}

// RenewAddressMappings arms the renewal flag and wakes the worker. It does
// not guarantee completion before return.
func (a *Agent) RenewAddressMappings() {
	a.renewal.arm()
	a.wake.wake()
}

// UUID returns the service UUID this agent was configured with.
func (a *Agent) UUID() string {
	return a.cfg.UUID
}

// GetLastHeartbeat returns the timestamp of the last successful service
// registration. It is non-decreasing.
func (a *Agent) GetLastHeartbeat() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastHeartbeat
}

// GetAdvertisedHostName returns the host string reported to clients.
func (a *Agent) GetAdvertisedHostName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.advertisedHostName
}

func (a *Agent) setLastHeartbeat(t time.Time) {
	a.mu.Lock()
	a.lastHeartbeat = t
	a.mu.Unlock()
}

func (a *Agent) setAdvertisedHostName(h string) {
	a.mu.Lock()
	a.advertisedHostName = h
	a.mu.Unlock()
}
