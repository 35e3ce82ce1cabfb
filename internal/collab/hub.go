package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
)

// DocumentLoader fetches the latest persisted document for a project.
type DocumentLoader func(projectID string) (*document.Document, error)

// DocumentSaver persists a document snapshot for a project.
type DocumentSaver func(projectID string, doc *document.Document) error

const saveInterval = 30 * time.Second

type Room struct {
	projectID string
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	state     *DocumentState
	dirty     bool
}

func NewRoom(projectID string, state *DocumentState) *Room {
	return &Room{
		projectID: projectID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		state:     state,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	loader     DocumentLoader
	saver      DocumentSaver
	cacheSize  int
}

func NewHub(loader DocumentLoader, saver DocumentSaver) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		loader:     loader,
		saver:      saver,
	}
}

// SetRouteCacheSize bounds the per-room routing cache. It must be called
// before Run.
func (h *Hub) SetRouteCacheSize(n int) {
	h.cacheSize = n
}

func (h *Hub) Run() {
	ticker := time.NewTicker(saveInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveDirtyRooms()
		case <-h.done:
			return
		}
	}
}

// Stop shuts the hub down, persisting every room with unsaved changes.
func (h *Hub) Stop() {
	close(h.done)
	h.saveDirtyRooms()
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		doc, err := h.loadDocument(client.ProjectID)
		if err != nil {
			h.mu.Unlock()
			slog.Error("load document", "error", err, "project", client.ProjectID)
			client.Send(&Message{Type: TypeError, Payload: json.RawMessage(`{"error":"document unavailable"}`)})
			close(client.send)
			return
		}
		room = NewRoom(client.ProjectID, NewDocumentStateWithCacheSize(doc, h.cacheSize))
		h.rooms[client.ProjectID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	// Sync the authoritative document to the new client
	docJSON, seq, err := room.state.Snapshot()
	if err != nil {
		slog.Error("snapshot document", "error", err, "project", client.ProjectID)
	} else {
		syncPayload, _ := json.Marshal(DocSyncPayload{Document: docJSON, Seq: seq})
		client.Send(&Message{Type: TypeDocSync, Payload: syncPayload})
	}

	// Send current presence state to new client
	stateMsg := room.presence.StateMessage()
	if stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.ProjectID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Remove(client.UserID)

	var emptied *Room
	if len(room.clients) == 0 {
		delete(h.rooms, client.ProjectID)
		emptied = room
	}
	h.mu.Unlock()

	if emptied != nil && emptied.dirty {
		h.saveRoom(emptied)
	}

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID: client.UserID,
	})
	leaveMsg := &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}
	h.broadcastToRoom(client.ProjectID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	h.mu.RLock()
	room, ok := h.rooms[sender.ProjectID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid op.submit payload", "error", err, "user", sender.UserID)
		h.nack(sender, "", "invalid payload")
		return
	}
	op := submit.Operation

	serverSeq, routes, err := room.state.ApplyOperation(op)
	if err != nil {
		slog.Warn("operation rejected", "type", op.Type, "error", err, "user", sender.UserID)
		h.nack(sender, op.ID, err.Error())
		return
	}

	h.mu.Lock()
	room.dirty = true
	h.mu.Unlock()

	ackPayload, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       serverSeq,
		ServerTimestamp: GetServerTimestamp(),
		Routes:          routes,
	})
	sender.Send(&Message{Type: TypeOpAck, Payload: ackPayload})

	broadcastPayload, _ := json.Marshal(OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: serverSeq,
		Routes:    routes,
	})
	h.broadcastToRoom(sender.ProjectID, &Message{
		Type:    TypeOpBroadcast,
		UserID:  sender.UserID,
		Payload: broadcastPayload,
	}, sender.ClientID)
}

func (h *Hub) nack(client *Client, opID, reason string) {
	payload, _ := json.Marshal(OperationNackPayload{OperationID: opID, Reason: reason})
	client.Send(&Message{Type: TypeOpNack, Payload: payload})
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.ProjectID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.UserID, &presence)

	// Broadcast to other clients in room
	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}
	h.broadcastToRoom(sender.ProjectID, outMsg, sender.ClientID)
}

func (h *Hub) broadcastToRoom(projectID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[projectID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func (h *Hub) loadDocument(projectID string) (*document.Document, error) {
	if h.loader == nil {
		return document.NewSampleDocument(projectID), nil
	}
	return h.loader(projectID)
}

func (h *Hub) saveDirtyRooms() {
	h.mu.Lock()
	dirty := make([]*Room, 0)
	for _, room := range h.rooms {
		if room.dirty {
			room.dirty = false
			dirty = append(dirty, room)
		}
	}
	h.mu.Unlock()

	for _, room := range dirty {
		h.saveRoom(room)
	}
}

func (h *Hub) saveRoom(room *Room) {
	if h.saver == nil {
		return
	}
	if err := h.saver(room.projectID, room.state.GetDocument()); err != nil {
		slog.Error("save document", "error", err, "project", room.projectID)
		return
	}
	slog.Info("document saved", "project", room.projectID)
}
