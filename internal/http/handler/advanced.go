package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"apicourse/internal/realtime"
)

const (
	defaultEventInterval = 5 * time.Second
	stockInterval        = 2 * time.Second
	defaultCSVRows       = 10000
	defaultJSONRows      = 1000
	maxStreamRows        = 100000
)

var stockSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA"}

// timedDelay is the simulated work behind /timed-endpoint.
var timedDelay = 100 * time.Millisecond

type eventStreamQuery struct {
	Limit      int `query:"limit" validate:"gte=0"`
	IntervalMs int `query:"interval_ms" validate:"gte=0,lte=60000"`
}

type rowsQuery struct {
	Rows int `query:"rows" validate:"gte=0,lte=100000"`
}

type notifyQuery struct {
	Title   string `query:"title" validate:"required"`
	Message string `query:"message" validate:"required"`
	Type    string `query:"type" validate:"omitempty,oneof=info success warning error"`
}

// RealtimeRoutes serves websockets, server-sent events and streamed bodies.
type RealtimeRoutes struct {
	hub      *realtime.Hub
	notifier *realtime.Notifier
	log      zerolog.Logger
}

func NewRealtimeRoutes(hub *realtime.Hub, log zerolog.Logger) *RealtimeRoutes {
	return &RealtimeRoutes{hub: hub, notifier: realtime.NewNotifier(hub), log: log}
}

func registerAdvanced(r fiber.Router, d *Deps) error {
	if d.Hub == nil {
		return missing("realtime hub")
	}
	h := NewRealtimeRoutes(d.Hub, d.Log)

	ws := r.Group("/ws", requireUpgrade)
	ws.Get("/chat/:room/:user_id", websocket.New(h.Chat))
	ws.Get("/notifications/:user_id", websocket.New(h.Notifications))
	ws.Get("/:user_id", websocket.New(h.Echo))

	r.Get("/events/stock-prices", StockPrices)
	r.Get("/events/:user_id", UserEvents)
	r.Get("/stream/csv", StreamCSV)
	r.Get("/stream/json", StreamJSON)
	r.Get("/timed-endpoint", TimedEndpoint)
	r.Post("/notify/:user_id", h.NotifyUser)
	r.Post("/broadcast", h.Broadcast)
	r.Get("/status", h.Status)

	// File routes need the document store; without it the lesson runs without them.
	if d.Documents != nil {
		r.Post("/upload", UploadDocument(d.Documents, d.Config.Upload.MaxFileSize))
		r.Get("/files", ListDocuments(d.Documents))
		r.Get("/files/:id", GetDocument(d.Documents))
		r.Get("/download/:id", DownloadDocument(d.Documents))
		r.Delete("/files/:id", DeleteDocument(d.Documents))
	}
	return nil
}

// requireUpgrade answers plain HTTP requests on websocket routes with 426.
func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// readLoop hands every text frame to fn until the peer goes away.
func (h *RealtimeRoutes) readLoop(conn *websocket.Conn, client *realtime.Client, fn func(raw []byte)) {
	for {
		select {
		case <-client.Done():
			return
		default:
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug().Err(err).Str("client_id", client.ID).Msg("websocket read failed")
			}
			return
		}
		fn(raw)
	}
}

// decodeFrame parses a frame as JSON, keeping it as a string when it is not.
func decodeFrame(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// Echo sends every frame back wrapped in the message envelope.
func (h *RealtimeRoutes) Echo(conn *websocket.Conn) {
	userID := conn.Params("user_id")
	client := h.hub.Register(conn, userID, "")
	defer h.hub.Leave(client)

	h.readLoop(conn, client, func(raw []byte) {
		h.hub.Send(client, realtime.Message{Type: "echo", Data: decodeFrame(raw), UserID: userID})
	})
}

type chatFrame struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Chat relays messages to everyone in the room and announces joins and leaves.
func (h *RealtimeRoutes) Chat(conn *websocket.Conn) {
	room, userID := conn.Params("room"), conn.Params("user_id")
	client := h.hub.Register(conn, userID, room)
	presence := func(kind string) {
		h.hub.BroadcastRoom(room, realtime.Message{
			Type: kind,
			Data: fiber.Map{"user_id": userID, "room": room, "timestamp": time.Now().UTC()},
			Room: room,
		})
	}
	presence("user_joined")
	defer func() {
		h.hub.Leave(client)
		presence("user_left")
	}()

	h.readLoop(conn, client, func(raw []byte) {
		var f chatFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			f.Message = string(raw)
		}
		if f.Username == "" {
			f.Username = userID
		}
		h.hub.BroadcastRoom(room, realtime.Message{
			Type: "chat_message",
			Data: fiber.Map{
				"user_id":   userID,
				"username":  f.Username,
				"message":   f.Message,
				"room":      room,
				"timestamp": time.Now().UTC(),
			},
			Room: room,
		})
	})
}

// Notifications greets the user and then only keeps the connection open.
func (h *RealtimeRoutes) Notifications(conn *websocket.Conn) {
	userID := conn.Params("user_id")
	client := h.hub.Register(conn, userID, "")
	defer h.hub.Leave(client)

	h.hub.Send(client, h.notifier.Build("Connected",
		fmt.Sprintf("Welcome %s! You're now connected to notifications.", userID), "info"))
	h.readLoop(conn, client, func([]byte) {})
}

func (h *RealtimeRoutes) NotifyUser(c *fiber.Ctx) error {
	var q notifyQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	n := h.notifier.NotifyUser(c.Params("user_id"), q.Title, q.Message, q.Type)
	return c.JSON(fiber.Map{"message": "Notification sent", "delivered": n})
}

func (h *RealtimeRoutes) Broadcast(c *fiber.Ctx) error {
	var q notifyQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	n := h.notifier.NotifyAll(q.Title, q.Message, q.Type)
	return c.JSON(fiber.Map{"message": "Notification broadcasted", "delivered": n})
}

func (h *RealtimeRoutes) Status(c *fiber.Ctx) error {
	return c.JSON(h.hub.Stats())
}

func sseHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
}

// eventStream writes numbered events from next every interval. A limit of zero
// streams until the client disconnects.
func eventStream(c *fiber.Ctx, limit int, interval time.Duration, next func(n int) realtime.Event) {
	sseHeaders(c)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for n := 1; limit == 0 || n <= limit; n++ {
			if err := realtime.WriteEvent(w, next(n)); err != nil {
				return
			}
			if limit != 0 && n == limit {
				return
			}
			time.Sleep(interval)
		}
	})
}

func (q eventStreamQuery) interval(def time.Duration) time.Duration {
	if q.IntervalMs > 0 {
		return time.Duration(q.IntervalMs) * time.Millisecond
	}
	return def
}

// UserEvents pushes a periodic update for one user.
func UserEvents(c *fiber.Ctx) error {
	var q eventStreamQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	userID := c.Params("user_id")
	eventStream(c, q.Limit, q.interval(defaultEventInterval), func(n int) realtime.Event {
		now := time.Now()
		return realtime.Event{ID: n, Data: fiber.Map{
			"id":          n,
			"user_id":     userID,
			"timestamp":   now.UTC(),
			"data":        fmt.Sprintf("Update #%d", n),
			"server_time": float64(now.UnixMilli()) / 1000,
		}}
	})
	return nil
}

// StockPrices pushes random quotes as stock-update events.
func StockPrices(c *fiber.Ctx) error {
	var q eventStreamQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	eventStream(c, q.Limit, q.interval(stockInterval), func(int) realtime.Event {
		return realtime.Event{Name: "stock-update", Data: fiber.Map{
			"symbol":    stockSymbols[rand.IntN(len(stockSymbols))],
			"price":     round2(100 + rand.Float64()*400),
			"change":    round2(rand.Float64()*20 - 10),
			"timestamp": time.Now().UTC(),
		}}
	})
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func (q rowsQuery) count(def int) int {
	if q.Rows > 0 {
		return min(q.Rows, maxStreamRows)
	}
	return def
}

// StreamCSV writes generated rows as they are produced.
func StreamCSV(c *fiber.Ctx) error {
	var q rowsQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	rows := q.count(defaultCSVRows)
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Attachment("users.csv")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		fmt.Fprint(w, "id,name,email,created_at\n")
		for i := range rows {
			fmt.Fprintf(w, "%d,User %d,user%d@example.com,%s\n", i, i, i, time.Now().UTC().Format(time.RFC3339))
			if i%500 == 499 {
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
		_ = w.Flush()
	})
	return nil
}

// StreamJSON writes one JSON document incrementally, element by element.
func StreamJSON(c *fiber.Ctx) error {
	var q rowsQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	rows := q.count(defaultJSONRows)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		enc := json.NewEncoder(w)
		fmt.Fprint(w, `{"users": [`)
		for i := range rows {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			_ = enc.Encode(fiber.Map{
				"id":         i,
				"name":       fmt.Sprintf("User %d", i),
				"email":      fmt.Sprintf("user%d@example.com", i),
				"created_at": time.Now().UTC(),
			})
			if i%100 == 99 {
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
		fmt.Fprint(w, "]}")
		_ = w.Flush()
	})
	return nil
}

func TimedEndpoint(c *fiber.Ctx) error {
	start := time.Now()
	time.Sleep(timedDelay)
	c.Set("X-Route-Time", fmt.Sprintf("%.6f", time.Since(start).Seconds()))
	return c.JSON(fiber.Map{
		"message":   "This endpoint was timed",
		"timestamp": time.Now().UTC(),
	})
}
