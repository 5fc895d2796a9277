package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 1 * time.Second

// wsConn adapts a gorilla WebSocket to Conn.
//
// Data frames go through a bounded sendQueue drained by writeLoop, which is
// the connection's only data writer. Control frames are written directly.
type wsConn struct {
	ws    *websocket.Conn
	queue *sendQueue

	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, sendQueueBytes int) *wsConn {
	return &wsConn{
		ws:    ws,
		queue: newSendQueue(sendQueueBytes),
	}
}

func (c *wsConn) Send(mode FrameMode, data []byte) error {
	return c.queue.Enqueue(mode, data)
}

func (c *wsConn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (c *wsConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.queue.Close()
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) Terminate() error {
	var err error
	c.closeOnce.Do(func() {
		c.queue.Close()
		err = c.ws.Close()
	})
	return err
}

// writeLoop delivers queued frames until the queue is closed or a write
// fails. A failed write drops the transport so the read loop unblocks.
func (c *wsConn) writeLoop() {
	for {
		f, ok := c.queue.Dequeue()
		if !ok {
			return
		}
		msgType := websocket.TextMessage
		if f.mode == BinaryFrame {
			msgType = websocket.BinaryMessage
		}
		if err := c.ws.WriteMessage(msgType, f.data); err != nil {
			_ = c.Terminate()
			return
		}
	}
}

func frameMode(msgType int) (FrameMode, bool) {
	switch msgType {
	case websocket.TextMessage:
		return TextFrame, true
	case websocket.BinaryMessage:
		return BinaryFrame, true
	default:
		return 0, false
	}
}
