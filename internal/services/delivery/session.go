package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ClientState is what the browser tab last reported about itself.
type ClientState struct {
	Focused    bool       `json:"focused"`
	Permission Permission `json:"permission"`
	Sounds     bool       `json:"sounds"`
}

const (
	FrameSession        = "session"
	FrameUnread         = "unread"
	FrameOSNotification = "os-notification"
	FrameSound          = "sound"
	FrameFocus          = "focus"
	FrameDismiss        = "dismiss"
)

type Frame struct {
	Event string
	Data  any
}

type UnreadFrame struct {
	View
	Notification *notification.Notification `json:"notification,omitempty"`
}

type OSNotificationFrame struct {
	Tag            string `json:"tag"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	NotificationID int64  `json:"notification_id"`
}

type DismissFrame struct {
	Tag string `json:"tag"`
}

func osTag(id int64) string { return fmt.Sprintf("studiobell-%d", id) }

// Session is one connected client of a recipient. Events are handled in
// arrival order by a single goroutine.
type Session struct {
	ID          string
	RecipientID int64

	log   *zap.Logger
	inbox *Inbox

	mu    sync.Mutex
	state ClientState
	shown map[int64]bool

	queue  chan *notification.Notification
	frames chan Frame
	done   chan struct{}

	closeOnce  sync.Once
	playerOnce sync.Once
	player     *SoundPlayer
}

func newSession(recipientID int64, st ClientState, inbox *Inbox, queueSize int, log *zap.Logger) *Session {
	if queueSize <= 0 {
		queueSize = 64
	}
	if st.Permission == "" {
		st.Permission = PermissionDefault
	}
	id := uuid.NewString()
	s := &Session{
		ID:          id,
		RecipientID: recipientID,
		log:         log.With(zap.String("session", id), zap.Int64("recipient_id", recipientID)),
		inbox:       inbox,
		state:       st,
		shown:       map[int64]bool{},
		queue:       make(chan *notification.Notification, queueSize),
		frames:      make(chan Frame, queueSize),
		done:        make(chan struct{}),
	}
	inbox.OnSync = func(v View) { s.emit(Frame{Event: FrameUnread, Data: UnreadFrame{View: v}}) }
	go s.run()
	return s
}

func (s *Session) Frames() <-chan Frame    { return s.frames }
func (s *Session) Done() <-chan struct{}   { return s.done }
func (s *Session) Inbox() *Inbox           { return s.inbox }
func (s *Session) State() ClientState      { s.mu.Lock(); defer s.mu.Unlock(); return s.state }
func (s *Session) SetState(st ClientState) { s.mu.Lock(); s.state = st; s.mu.Unlock() }

// deliver enqueues without blocking. false means the queue is full and the
// session must be dropped; the client reconnects and refetches.
func (s *Session) deliver(n *notification.Notification) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- n:
		return true
	default:
		return false
	}
}

func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case n := <-s.queue:
			s.handle(n)
		}
	}
}

// handle updates the unread list first. The OS notification and the sound are
// independent of each other and neither can hold back the unread frame.
func (s *Session) handle(n *notification.Notification) {
	view := s.inbox.Apply(n)
	s.emit(Frame{Event: FrameUnread, Data: UnreadFrame{View: view, Notification: n}})

	st := s.State()

	if st.Permission == PermissionGranted && !st.Focused {
		s.mu.Lock()
		s.shown[n.ID] = true
		s.mu.Unlock()
		s.emit(Frame{Event: FrameOSNotification, Data: OSNotificationFrame{
			Tag:            osTag(n.ID),
			Title:          Title(n.Type),
			Body:           n.Message(),
			NotificationID: n.ID,
		}})
	}

	if st.Sounds {
		cue, err := s.playCue(SoundFor(n.Type))
		if err != nil {
			s.log.Debug("sound skipped", zap.Error(err))
			return
		}
		s.emit(Frame{Event: FrameSound, Data: cue})
	}
}

func (s *Session) playCue(sev SoundSeverity) (Cue, error) {
	s.playerOnce.Do(func() { s.player = newSoundPlayer() })
	if s.player == nil {
		return Cue{}, ErrPlayerClosed
	}
	return s.player.Play(sev)
}

// Click handles a click on the OS notification for id: focus the app and
// clear that notification. The record itself stays unread.
func (s *Session) Click(id int64) {
	s.mu.Lock()
	delete(s.shown, id)
	s.state.Focused = true
	s.mu.Unlock()

	s.emit(Frame{Event: FrameFocus, Data: map[string]int64{"notification_id": id}})
	s.emit(Frame{Event: FrameDismiss, Data: DismissFrame{Tag: osTag(id)}})
}

// Sync reloads the unread view from the store and pushes it to the client.
func (s *Session) Sync(ctx context.Context) error {
	return s.inbox.Refetch(ctx)
}

func (s *Session) emit(f Frame) {
	select {
	case s.frames <- f:
	case <-s.done:
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		// The player only exists if a cue was ever played.
		s.playerOnce.Do(func() {})
		if s.player != nil {
			s.player.Close()
		}
	})
}
