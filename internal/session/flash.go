package session

// FlashKind styles a flash message.
type FlashKind string

const (
	FlashInfo    FlashKind = "info"
	FlashSuccess FlashKind = "success"
	FlashWarning FlashKind = "warning"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next dashboard render.
type Flash struct {
	Kind    FlashKind
	Message string
	Action  string
	Code    string
}

// maxFlashes bounds the queue when nobody renders it.
const maxFlashes = 8

// AddFlash queues f, dropping the oldest message when full.
func (s *Session) AddFlash(f Flash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flashes) >= maxFlashes {
		s.flashes = s.flashes[1:]
	}
	s.flashes = append(s.flashes, f)
}

// TakeFlashes returns and clears the queued messages.
func (s *Session) TakeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}
