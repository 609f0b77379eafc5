package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nursera-booking-server/internal/delivery/ws"
	"nursera-booking-server/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *ws.Hub) {
	t.Helper()

	hub := ws.NewHub(logrus.New())
	wsHandler := NewWSHandler(hub, logrus.New())

	router := mux.NewRouter()
	router.HandleFunc("/ws/bookings/{id}", wsHandler.Subscribe)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

func dialBooking(t *testing.T, server *httptest.Server, bookingID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/bookings/" + bookingID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) service.BookingEvent {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event service.BookingEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func TestWSSubscribeSendsWelcome(t *testing.T) {
	server, _ := newWSTestServer(t)
	bookingID := uuid.New().String()

	conn := dialBooking(t, server, bookingID)

	welcome := readEvent(t, conn)
	assert.Equal(t, service.EventTypeBookingUpdate, welcome.Type)
	assert.Contains(t, welcome.Message, bookingID)
}

func TestWSBroadcastFanOut(t *testing.T) {
	server, hub := newWSTestServer(t)
	bookingID := uuid.New().String()

	first := dialBooking(t, server, bookingID)
	second := dialBooking(t, server, bookingID)
	readEvent(t, first)
	readEvent(t, second)

	// Both subscribers must be registered before the publish
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(bookingID) == 2
	}, time.Second, 10*time.Millisecond)

	payload, _ := json.Marshal(service.BookingEvent{
		Type:    service.EventTypeBookingUpdate,
		Message: "Location shared by patient",
	})
	hub.Broadcast(bookingID, payload)

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		assert.Equal(t, "Location shared by patient", event.Message)
	}
}

func TestWSSubscribeRejectsBadBookingID(t *testing.T) {
	server, _ := newWSTestServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/bookings/not-a-uuid"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
