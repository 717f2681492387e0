package signaling

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// maxFrame bounds a single frame. Session descriptions with many media
// sections stay well below it.
const maxFrame = 1 << 20

const defaultWriteTimeout = 10 * time.Second

// Server relays frames between the two members of a room. The room is
// named by the request path, so "/abc" and "/abc/" join the same room.
type Server struct {
	// OriginPatterns authorizes cross-origin browser clients.
	OriginPatterns []string
	// WriteTimeout bounds each relayed write. Zero means 10s.
	WriteTimeout time.Duration

	logger *zap.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	members [2]*member
}

// member is a reserved room slot. ws is nil until the upgrade completed.
type member struct {
	ws *websocket.Conn
}

// NewServer returns a server logging to logger. A nil logger discards.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logger: logger, rooms: make(map[string]*room)}
}

// Rooms returns the number of rooms with at least one member.
func (s *Server) Rooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(r.URL.Path, "/")
	if name == "" {
		http.Error(w, "missing room", http.StatusNotFound)
		return
	}
	m := &member{}
	if !s.join(name, m) {
		http.Error(w, "room full", http.StatusConflict)
		return
	}
	log := s.logger.With(zap.String("room", name))

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.OriginPatterns})
	if err != nil {
		s.leave(name, m)
		log.Debug("upgrade failed", zap.Error(err))
		return
	}
	defer ws.CloseNow()
	ws.SetReadLimit(maxFrame)

	if partner := s.ready(name, m, ws); partner != nil {
		log.Info("room complete")
		s.notify(log, partner, TypePeer)
		s.notify(log, m, TypePeer)
	} else {
		log.Info("waiting for peer")
	}
	defer func() {
		if partner := s.leave(name, m); partner != nil {
			s.notify(log, partner, TypeBye)
		}
	}()

	s.relay(r.Context(), log, name, m)
}

// relay forwards every frame m sends to its partner until m disconnects.
// Frames sent while m is alone are dropped.
func (s *Server) relay(ctx context.Context, log *zap.Logger, name string, m *member) {
	for {
		typ, data, err := m.ws.Read(ctx)
		if err != nil {
			if st := websocket.CloseStatus(err); st != websocket.StatusNormalClosure && st != websocket.StatusGoingAway {
				log.Debug("read failed", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageBinary {
			_ = m.ws.Close(websocket.StatusUnsupportedData, "binary frames only")
			return
		}
		msg, err := Unmarshal(data)
		if err != nil {
			log.Warn("dropping member", zap.Error(err))
			_ = m.ws.Close(websocket.StatusUnsupportedData, "malformed message")
			return
		}
		if msg.Type == TypePeer || msg.Type == TypeBye {
			log.Debug("ignoring server message type from member", zap.Stringer("type", msg.Type))
			continue
		}

		partner := s.partner(name, m)
		if partner == nil {
			log.Debug("no partner, dropping", zap.Stringer("type", msg.Type))
			continue
		}
		if err := s.write(partner, data); err != nil {
			log.Debug("relay failed", zap.Stringer("type", msg.Type), zap.Error(err))
		}
	}
}

func (s *Server) join(name string, m *member) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		r = &room{}
		s.rooms[name] = r
	}
	for i, slot := range r.members {
		if slot == nil {
			r.members[i] = m
			return true
		}
	}
	return false
}

// ready attaches ws to m and returns the partner when it is ready too.
func (s *Server) ready(name string, m *member, ws *websocket.Conn) *member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ws = ws
	return s.partnerLocked(name, m)
}

// leave frees m's slot and returns the remaining ready partner.
func (s *Server) leave(name string, m *member) *member {
	s.mu.Lock()
	defer s.mu.Unlock()
	partner := s.partnerLocked(name, m)
	r, ok := s.rooms[name]
	if !ok {
		return nil
	}
	for i, slot := range r.members {
		if slot == m {
			r.members[i] = nil
		}
	}
	if r.members[0] == nil && r.members[1] == nil {
		delete(s.rooms, name)
	}
	return partner
}

func (s *Server) partner(name string, m *member) *member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partnerLocked(name, m)
}

func (s *Server) partnerLocked(name string, m *member) *member {
	r, ok := s.rooms[name]
	if !ok {
		return nil
	}
	for _, slot := range r.members {
		if slot != nil && slot != m && slot.ws != nil {
			return slot
		}
	}
	return nil
}

func (s *Server) notify(log *zap.Logger, m *member, t Type) {
	data, err := Marshal(&Message{Type: t})
	if err != nil {
		log.Error("encode notification", zap.Error(err))
		return
	}
	if err := s.write(m, data); err != nil {
		log.Debug("notify failed", zap.Stringer("type", t), zap.Error(err))
	}
}

func (s *Server) write(m *member, data []byte) error {
	timeout := s.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.ws.Write(ctx, websocket.MessageBinary, data)
}
