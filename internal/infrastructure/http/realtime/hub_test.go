package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/infrastructure/config"
	"github.com/nutriplan/engine/internal/infrastructure/http/middleware"
)

type HubTestSuite struct {
	suite.Suite
	hub    *Hub
	server *httptest.Server
}

func (s *HubTestSuite) SetupTest() {
	s.hub = NewHub(Options{PingInterval: time.Hour}, zap.NewNop())
	mw := middleware.New(config.ServerConfig{}, nil, zap.NewNop())
	s.server = httptest.NewServer(mw.Identity()(s.hub))
}

func (s *HubTestSuite) TearDownTest() {
	s.hub.Close()
	s.server.Close()
}

func (s *HubTestSuite) dial(userID uuid.UUID) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	header := http.Header{}
	header.Set(middleware.UserIDHeader, userID.String())

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(s.T(), err)
	_ = resp.Body.Close()
	return conn
}

func (s *HubTestSuite) waitSubscribers(userID uuid.UUID, n int) {
	require.Eventually(s.T(), func() bool { return s.hub.Subscribers(userID) == n }, 2*time.Second, 10*time.Millisecond)
}

func slotEvent(userID uuid.UUID) mealplan.SlotChangedEvent {
	return mealplan.SlotChangedEvent{
		MealPlanID: uuid.New(),
		UserID:     userID,
		Date:       shared.MustParseDate("2024-05-01"),
		Slot:       mealplan.SlotLunch,
		Operation:  mealplan.OpAdd,
		RecipeIDs:  []uuid.UUID{uuid.New()},
		Version:    2,
		ChangedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *HubTestSuite) TestPublish_DeliversToEveryConnectionOfUser() {
	// Arrange
	userID := uuid.New()
	first, second := s.dial(userID), s.dial(userID)
	defer first.Close()
	defer second.Close()
	s.waitSubscribers(userID, 2)

	// Act
	require.NoError(s.T(), s.hub.Publish(context.Background(), userID, slotEvent(userID)))

	// Assert
	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(s.T(), err)

		var msg struct {
			Type    string                 `json:"type"`
			Payload map[string]interface{} `json:"payload"`
		}
		require.NoError(s.T(), json.Unmarshal(data, &msg))
		assert.Equal(s.T(), "mealplan.slot.changed", msg.Type)
		assert.Equal(s.T(), "lunch", msg.Payload["slot"])
		assert.Equal(s.T(), float64(2), msg.Payload["version"])
	}
}

func (s *HubTestSuite) TestPublish_OtherUsersReceiveNothing() {
	alice, bob := uuid.New(), uuid.New()
	conn := s.dial(bob)
	defer conn.Close()
	s.waitSubscribers(bob, 1)

	require.NoError(s.T(), s.hub.Publish(context.Background(), alice, slotEvent(alice)))

	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(s.T(), err)
}

func (s *HubTestSuite) TestDisconnectUnregisters() {
	userID := uuid.New()
	conn := s.dial(userID)
	s.waitSubscribers(userID, 1)

	require.NoError(s.T(), conn.Close())

	s.waitSubscribers(userID, 0)
}

func (s *HubTestSuite) TestClose() {
	userID := uuid.New()
	conn := s.dial(userID)
	defer conn.Close()
	s.waitSubscribers(userID, 1)

	s.hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(s.T(), websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.ErrorIs(s.T(), s.hub.Publish(context.Background(), userID, slotEvent(userID)), ErrHubClosed)
	assert.Zero(s.T(), s.hub.Subscribers(userID))
}

func (s *HubTestSuite) TestRejectsAnonymous() {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(s.T(), err)
	require.NotNil(s.T(), resp)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
}

func TestHubTestSuite(t *testing.T) {
	suite.Run(t, new(HubTestSuite))
}
