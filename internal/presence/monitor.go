package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/feed"
	"github.com/churchevent-ux/registerform--event-final/internal/metrics"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
)

// Source loads full collection snapshots.
type Source interface {
	ListParticipants(ctx context.Context) ([]model.Participant, error)
	ListAttendance(ctx context.Context) ([]model.AttendanceRecord, error)
}

// PublishFunc forwards signals to whoever notifies operators.
type PublishFunc func(ctx context.Context, signals []Signal) error

// MonitorConfig wires a Monitor.
type MonitorConfig struct {
	Broker   feed.Broker
	Source   Source
	Location *time.Location
	Publish  PublishFunc
	Logger   *zap.Logger
	Now      func() time.Time
	Options  []ReducerOption
}

// Monitor owns the participant and attendance subscriptions and keeps the latest dashboard.
type Monitor struct {
	cfg          MonitorConfig
	reducer      *Reducer
	participants *feed.Subscription[[]model.Participant]
	attendance   *feed.Subscription[[]model.AttendanceRecord]

	ctx context.Context

	mu      sync.RWMutex
	people  []model.Participant
	records []model.AttendanceRecord
	dash    Dashboard
}

// NewMonitor creates a stopped monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	m := &Monitor{cfg: cfg, reducer: NewReducer(cfg.Options...), ctx: context.Background()}
	onErr := func(collection string) func(error) {
		return func(err error) {
			cfg.Logger.Warn("snapshot load failed", zap.String("collection", collection), zap.Error(err))
		}
	}
	m.participants = feed.NewSubscription(cfg.Broker, feed.Participants, cfg.Source.ListParticipants, m.onParticipants, onErr(feed.Participants))
	m.attendance = feed.NewSubscription(cfg.Broker, feed.Attendance, cfg.Source.ListAttendance, m.onAttendance, onErr(feed.Attendance))
	return m
}

// Start subscribes to both collections.
func (m *Monitor) Start(ctx context.Context) error {
	m.ctx = ctx
	if err := m.participants.Start(ctx); err != nil {
		return err
	}
	if err := m.attendance.Start(ctx); err != nil {
		m.participants.Stop()
		return err
	}
	return nil
}

// Stop tears down both subscriptions and waits for in-flight callbacks.
func (m *Monitor) Stop() {
	m.participants.Stop()
	m.attendance.Stop()
}

// Dashboard returns the dashboard computed from the latest snapshots.
func (m *Monitor) Dashboard() Dashboard {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dash
}

// Participants returns the latest participant snapshot.
func (m *Monitor) Participants() []model.Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Participant(nil), m.people...)
}

func (m *Monitor) onParticipants(snap []model.Participant) {
	start := time.Now()
	now := m.cfg.Now()
	signals := m.reducer.Observe(snap, now)

	m.mu.Lock()
	m.people = snap
	m.dash = Aggregate(m.people, m.records, now, m.cfg.Location)
	m.mu.Unlock()
	metrics.ObserveReduce(time.Since(start))

	if len(signals) == 0 {
		return
	}
	for _, s := range signals {
		metrics.Signals.WithLabelValues(s.Type).Inc()
	}
	if m.cfg.Publish == nil {
		return
	}
	if err := m.cfg.Publish(m.ctx, signals); err != nil {
		m.cfg.Logger.Warn("publish signals failed", zap.Int("count", len(signals)), zap.Error(err))
	}
}

func (m *Monitor) onAttendance(snap []model.AttendanceRecord) {
	start := time.Now()
	m.mu.Lock()
	m.records = snap
	m.dash = Aggregate(m.people, m.records, m.cfg.Now(), m.cfg.Location)
	m.mu.Unlock()
	metrics.ObserveReduce(time.Since(start))
}
