package websocket

import (
	"drawboard-server/core"
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	GalleryRoom = "gallery"

	EventJoinGallery    = "join-gallery"
	EventLeaveGallery   = "leave-gallery"
	EventDrawingCreated = "drawing-created"
	EventDrawingDeleted = "drawing-deleted"

	maxHttpBufferSize = 1 << 20
)

var localhostOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)

type ackInvoker func(err error, payload map[string]any)

type (
	CreatedPayload struct {
		ID        string `json:"id"`
		CreatedAt string `json:"createdAt"`
	}

	DeletedPayload struct {
		ID string `json:"id"`
	}
)

// Hub pushes gallery change notifications to every socket in the gallery
// room. It implements core.Events.
type Hub struct {
	srv *socketio.Server

	// broadcast is swapped out in tests.
	broadcast func(event string, args ...any) error

	mu          sync.RWMutex
	subscribers map[socketio.SocketId]struct{}
}

var _ core.Events = (*Hub)(nil)

func newHub() *Hub {
	return &Hub{subscribers: make(map[socketio.SocketId]struct{})}
}

// SetupSocketIO creates the socket.io server backing the gallery feed.
// Localhost and tauri origins are always allowed, plus allowedOrigins.
func SetupSocketIO(allowedOrigins []string) *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(maxHttpBufferSize)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)

	origins := []any{"tauri://localhost", localhostOrigin}
	for _, o := range allowedOrigins {
		origins = append(origins, o)
	}
	opts.SetCors(&types.Cors{
		Origin:      origins,
		Credentials: true,
	})

	h := newHub()
	h.srv = socketio.NewServer(nil, opts)
	h.broadcast = func(event string, args ...any) error {
		return h.srv.To(socketio.Room(GalleryRoom)).Emit(event, args...)
	}

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	h.srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		h.handleConnection(socket)
	})

	return h
}

// Server exposes the underlying socket.io server for mounting and shutdown.
func (h *Hub) Server() *socketio.Server {
	return h.srv
}

func (h *Hub) handleConnection(socket *socketio.Socket) {
	me := socket.Id()
	logrus.WithField("socket", me).Debug("Socket connected")

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On(EventJoinGallery, func(datas ...any) {
		ack, _ := extractAck(datas)

		socket.Join(socketio.Room(GalleryRoom))
		count := h.addSubscriber(me)
		logrus.WithFields(logrus.Fields{
			"socket":      me,
			"subscribers": count,
		}).Info("Socket joined gallery")

		respondWithAck(socket, ack, "join-gallery-ack", map[string]any{
			"status":           "ok",
			"subscriber_count": count,
		}, nil)
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On(EventLeaveGallery, func(datas ...any) {
		socket.Leave(socketio.Room(GalleryRoom))
		h.removeSubscriber(me)
	})

	socket.On("disconnecting", func(datas ...any) {
		count := h.removeSubscriber(me)
		logrus.WithFields(logrus.Fields{
			"socket":      me,
			"subscribers": count,
		}).Debug("Socket left gallery")
	})

	socket.On("disconnect", func(datas ...any) {
		socket.RemoveAllListeners("")
		socket.Disconnect(true)
	})
}

func (h *Hub) addSubscriber(id socketio.SocketId) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[id] = struct{}{}
	return len(h.subscribers)
}

func (h *Hub) removeSubscriber(id socketio.SocketId) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
	return len(h.subscribers)
}

// GetSubscriberCount reports how many sockets currently watch the gallery.
func (h *Hub) GetSubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) DrawingCreated(d *core.Drawing) {
	h.notify(EventDrawingCreated, CreatedPayload{ID: d.ID, CreatedAt: d.CreatedAt})
}

func (h *Hub) DrawingDeleted(id string) {
	h.notify(EventDrawingDeleted, DeletedPayload{ID: id})
}

func (h *Hub) notify(event string, payload any) {
	if h.broadcast == nil || h.GetSubscriberCount() == 0 {
		return
	}
	if err := h.broadcast(event, payload); err != nil {
		logrus.WithError(err).WithField("event", event).Warn("Failed to notify gallery")
	}
}

func (h *Hub) Close() {
	if h.srv != nil {
		h.srv.Close(nil)
	}
}

func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}

	ack = wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

// wrapAck adapts whatever callback shape the client library hands us into a
// uniform (err, payload) invoker.
func wrapAck(candidate any) ackInvoker {
	if candidate == nil {
		return nil
	}

	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}

	typ := value.Type()
	return func(err error, payload map[string]any) {
		args := make([]reflect.Value, typ.NumIn())
		payloadUsed := false
		for i := range args {
			var arg any
			switch {
			case typ.NumIn() == 1 && err != nil:
				arg = err
			case typ.In(i) == errorType:
				if err != nil {
					arg = err
				}
			case !payloadUsed:
				arg = payload
				payloadUsed = true
			}
			args[i] = coerceValue(arg, typ.In(i))
		}
		value.Call(args)
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func coerceValue(value any, targetType reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(targetType)
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(targetType):
		return rv
	case rv.Type().ConvertibleTo(targetType):
		return rv.Convert(targetType)
	case targetType.Kind() == reflect.Slice && targetType.Elem().Kind() == reflect.Interface:
		// socket.io acks take a variadic []any
		out := reflect.MakeSlice(targetType, 1, 1)
		out.Index(0).Set(rv)
		return out
	case targetType.Kind() == reflect.String:
		return reflect.ValueOf(fmt.Sprint(value)).Convert(targetType)
	}
	return reflect.Zero(targetType)
}

func respondWithAck(socket *socketio.Socket, ack ackInvoker, event string, payload map[string]any, ackErr error) {
	if ack != nil {
		ack(ackErr, payload)
	}
	if event != "" && payload != nil {
		_ = socket.Emit(event, payload)
	}
}
