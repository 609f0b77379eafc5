package handler

import (
	"fmt"
	"net/http"

	"nursera-booking-server/internal/delivery/ws"
	"nursera-booking-server/internal/service"
	"nursera-booking-server/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades clients onto a booking's real-time channel.
// No authentication at this layer; an external gateway fronts it.
type WSHandler struct {
	hub *ws.Hub
	log *logrus.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe attaches a WebSocket client to one booking topic
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bookingID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid booking ID", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("Failed to upgrade websocket for booking %s: %+v", bookingID, err)
		return
	}

	client := ws.NewClient(h.hub, conn, bookingID.String())
	h.hub.Register(client)

	// Welcome frame so the client knows the subscription is live. Anything
	// published before this point is missed; there is no replay. Written
	// before the pump starts so nothing else is writing to the connection.
	welcome := service.BookingEvent{
		Type:    service.EventTypeBookingUpdate,
		Message: fmt.Sprintf("WebSocket connection opened for booking %s.", bookingID),
	}
	if err := conn.WriteJSON(welcome); err != nil {
		h.log.Warnf("Failed to send welcome frame for booking %s: %+v", bookingID, err)
	}

	go client.WritePump()

	h.log.Debugf("WebSocket subscriber joined booking %s", bookingID)
	client.ReadPump()
}
