// Package websocket is the live marketplace activity feed: a hub fanning
// recorded events and stat snapshots out to connected clients, with optional
// per-vehicle subscriptions.
package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// targetedMessage is a message for the watchers of one listing.
type targetedMessage struct {
	vehicleID string
	payload   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// The maps are owned by the Run goroutine; all sends go through channels.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages for global broadcast.
	Broadcast chan []byte

	// Inbound messages for the watchers of one listing.
	targeted chan targetedMessage

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// A map of vehicle IDs to the set of clients watching that listing.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte, 64),
		targeted:      make(chan targetedMessage, 64),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Feed client connected")
			if client.VehicleID != "" {
				h.addSubscription(client, client.VehicleID)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Feed client disconnected")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				// Vehicle-scoped clients only hear about their listing.
				if client.VehicleID != "" {
					continue
				}
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.removeSubscription(client)
				}
			}
		case tm := <-h.targeted:
			for client := range h.subscriptions[tm.vehicleID] {
				select {
				case client.Send <- tm.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.removeSubscription(client)
				}
			}
		}
	}
}

// BroadcastMessage marshals and queues a message for every connected client.
// The send never blocks the caller; if the hub is saturated the message is
// dropped.
func (h *Hub) BroadcastMessage(action string, payload any) {
	b, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to marshal broadcast message")
		return
	}
	select {
	case h.Broadcast <- b:
	default:
		log.Warn().Str("action", action).Msg("Feed broadcast queue full, dropping message")
	}
}

// BroadcastVehicle marshals and queues a message for the watchers of one
// listing. Like BroadcastMessage it never blocks the caller.
func (h *Hub) BroadcastVehicle(vehicleID, action string, payload any) {
	b, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to marshal broadcast message")
		return
	}
	select {
	case h.targeted <- targetedMessage{vehicleID: vehicleID, payload: b}:
	default:
		log.Warn().Str("action", action).Str("vehicle_id", vehicleID).Msg("Feed broadcast queue full, dropping message")
	}
}

func (h *Hub) addSubscription(client *Client, vehicleID string) {
	if h.subscriptions[vehicleID] == nil {
		h.subscriptions[vehicleID] = make(map[*Client]bool)
	}
	h.subscriptions[vehicleID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for vehicleID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, vehicleID)
			}
		}
	}
}
