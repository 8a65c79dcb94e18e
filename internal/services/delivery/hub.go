package delivery

import (
	"sync"

	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "delivery_sessions_active", Help: "Connected stream sessions.",
	})
	mEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_events_total", Help: "Notification events received by the hub.",
	})
	mDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_session_deliveries_total", Help: "Events handed to sessions.",
	})
	mOverflow = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_session_overflow_total", Help: "Sessions dropped because their queue was full.",
	})
	mFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_frames_total", Help: "Frames written to clients by event.",
	}, []string{"event"})
	mPoison = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_events_dropped_total", Help: "Change-stream messages that could not be decoded.",
	})
)

type HubConfig struct {
	QueueSize  int `mapstructure:"queue_size"`
	InboxLimit int `mapstructure:"inbox_limit"`
}

// Hub fans notification events out to the sessions of their recipient.
type Hub struct {
	log    *zap.Logger
	remote Remote
	cfg    HubConfig

	mu          sync.RWMutex
	byRecipient map[int64]map[string]*Session
	byID        map[string]*Session
}

func NewHub(remote Remote, cfg HubConfig, log *zap.Logger) *Hub {
	return &Hub{
		log:         log.With(zap.String("component", "delivery.hub")),
		remote:      remote,
		cfg:         cfg,
		byRecipient: map[int64]map[string]*Session{},
		byID:        map[string]*Session{},
	}
}

func (h *Hub) Subscribe(recipientID int64, st ClientState) *Session {
	s := newSession(recipientID, st, NewInbox(recipientID, h.remote, h.cfg.InboxLimit), h.cfg.QueueSize, h.log)

	h.mu.Lock()
	set, ok := h.byRecipient[recipientID]
	if !ok {
		set = map[string]*Session{}
		h.byRecipient[recipientID] = set
	}
	set[s.ID] = s
	h.byID[s.ID] = s
	h.mu.Unlock()

	mSessions.Inc()
	h.log.Debug("session opened", zap.String("session", s.ID), zap.Int64("recipient_id", recipientID))
	return s
}

// Unsubscribe removes s and releases its resources. Safe to call twice.
func (h *Hub) Unsubscribe(s *Session) {
	h.mu.Lock()
	_, ok := h.byID[s.ID]
	if ok {
		delete(h.byID, s.ID)
		if set := h.byRecipient[s.RecipientID]; set != nil {
			delete(set, s.ID)
			if len(set) == 0 {
				delete(h.byRecipient, s.RecipientID)
			}
		}
	}
	h.mu.Unlock()

	s.close()
	if ok {
		mSessions.Dec()
		h.log.Debug("session closed", zap.String("session", s.ID))
	}
}

// Session looks up a session owned by recipientID.
func (h *Hub) Session(recipientID int64, id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.byID[id]
	if !ok || s.RecipientID != recipientID {
		return nil, false
	}
	return s, true
}

func (h *Hub) Sessions(recipientID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byRecipient[recipientID])
}

// Publish hands n to every session of its recipient and returns how many took it.
func (h *Hub) Publish(n *notification.Notification) int {
	mEvents.Inc()

	h.mu.RLock()
	var delivered int
	var overflow []*Session
	for _, s := range h.byRecipient[n.RecipientID] {
		if s.deliver(n) {
			delivered++
		} else {
			overflow = append(overflow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range overflow {
		mOverflow.Inc()
		h.log.Warn("session queue full, dropping", zap.String("session", s.ID), zap.Int64("recipient_id", s.RecipientID))
		h.Unsubscribe(s)
	}
	mDelivered.Add(float64(delivered))
	return delivered
}

func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Session, 0, len(h.byID))
	for _, s := range h.byID {
		all = append(all, s)
	}
	h.mu.RUnlock()
	for _, s := range all {
		h.Unsubscribe(s)
	}
}
