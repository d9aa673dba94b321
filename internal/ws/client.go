package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const (
	writeWait      = 10 * time.Second // 写入超时
	pongWait       = 60 * time.Second // 读取超时（应大于心跳间隔）
	pingPeriod     = 50 * time.Second // 心跳间隔
	maxMessageSize = 4 * 1024         // 客户端只会发心跳
)

var errClientClosed = errors.New("connection closed")

// Client 行情推送的一个浏览器连接
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn) *Client {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}
}

// Done 连接关闭后返回
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		_ = c.conn.Close()
	})
	return nil
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// readPump 读到错误（含客户端关闭、心跳超时）即关闭连接
func (c *Client) readPump() {
	defer c.Close()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("ws read error")
			}
			return
		}

		// 每次读取成功，刷新 ReadDeadline
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		// 应用层心跳
		var req struct {
			Method string `json:"method"`
		}
		if json.Unmarshal(msg, &req) == nil && req.Method == "ping" {
			if err = c.WriteJSON(map[string]string{"channel": "pong"}); err != nil {
				return
			}
		}
	}
}

func (c *Client) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.Ping(); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Ping 发送标准 Ping 帧
func (c *Client) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return errClientClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// WriteJSON 带写超时
func (c *Client) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return errClientClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}
