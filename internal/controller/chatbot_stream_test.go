package controller

import (
	"net"
	"testing"
	"time"

	"medconsult-be/internal/dto"
	"medconsult-be/internal/pkg/logger"
	"medconsult-be/internal/pkg/serverutils"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialChat serves the chat routes on a loopback listener and opens the
// websocket for session s-1.
func dialChat(t *testing.T, chat *fakeChatbotService) *fastws.Conn {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	NewChatbotController(chat, serverutils.JwtMiddleware(""), logger.NewNopLogger()).RegisterRoutes(app.Group("/api"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := fastws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/chat/v1/ws/s-1", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *fastws.Conn) dto.WsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame dto.WsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestStreamChatFragmentsThenDone(t *testing.T) {
	conn := dialChat(t, &fakeChatbotService{fragments: []string{"Hyper", "tension ", "is high BP."}})

	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte(`{"chat":"What is hypertension?"}`)))

	var got []string
	for i := 0; i < 3; i++ {
		frame := readFrame(t, conn)
		require.Equal(t, dto.WsFrameFragment, frame.Type)
		got = append(got, frame.Content)
	}
	assert.Equal(t, []string{"Hyper", "tension ", "is high BP."}, got)

	done := readFrame(t, conn)
	assert.Equal(t, dto.WsFrameDone, done.Type)
	require.NotNil(t, done.Reply)
	assert.Equal(t, "s-1", done.Reply.ChatSessionId)
	assert.Equal(t, "Hypertension is high BP.", done.Reply.Reply.Content)
	assert.Equal(t, 3, done.Reply.Fragments)
}

func TestStreamChatEmptyStream(t *testing.T) {
	conn := dialChat(t, &fakeChatbotService{})

	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte(`{"chat":"hello"}`)))

	done := readFrame(t, conn)
	assert.Equal(t, dto.WsFrameDone, done.Type)
	require.NotNil(t, done.Reply)
	assert.Empty(t, done.Reply.Reply.Content)
	assert.Zero(t, done.Reply.Fragments)
}

func TestStreamChatBadFramesKeepConnection(t *testing.T) {
	conn := dialChat(t, &fakeChatbotService{fragments: []string{"ok"}})

	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte(`not json`)))
	frame := readFrame(t, conn)
	assert.Equal(t, dto.WsFrameError, frame.Type)
	assert.Contains(t, frame.Content, "invalid frame")

	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte(`{"chat":""}`)))
	frame = readFrame(t, conn)
	assert.Equal(t, dto.WsFrameError, frame.Type)

	// the same connection still serves a valid turn
	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte(`{"chat":"again"}`)))
	assert.Equal(t, dto.WsFrameFragment, readFrame(t, conn).Type)
	assert.Equal(t, dto.WsFrameDone, readFrame(t, conn).Type)
}
