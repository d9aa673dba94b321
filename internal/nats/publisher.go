package nats

import (
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/adaptbtc/adaptbtc-server/internal/monitor"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

var ErrPublisherClosed = errors.New("nats publisher closed")

// Publisher NATS 发布器
type Publisher struct {
	*nats.Conn
	subject string
	mu      sync.RWMutex
	closed  bool
}

// NewPublisher 创建 NATS 发布器，subject 为空时使用 TopicConsultingRequest
func NewPublisher(url, subject string) (*Publisher, error) {
	if subject == "" {
		subject = TopicConsultingRequest
	}

	conn, err := nats.Connect(url,
		nats.Name("adaptbtc-server"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			monitor.GetMetrics().SetNATSConnected(false)
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			monitor.GetMetrics().SetNATSConnected(true)
			logger.Info().Str("url", c.ConnectedUrlRedacted()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		Conn:    conn,
		subject: subject,
	}

	// 更新指标
	monitor.GetMetrics().SetNATSConnected(true)

	return p, nil
}

// Subject 咨询请求的发布主题
func (p *Publisher) Subject() string {
	return p.subject
}

// PublishConsulting 发布咨询请求并等待服务端确认写出
func (p *Publisher) PublishConsulting(msg *ConsultingMessage) error {
	if !p.IsConnected() {
		return ErrPublisherClosed
	}

	data, err := msg.Marshal()
	if err != nil {
		return err
	}

	if err = p.Publish(p.subject, data); err != nil {
		return err
	}
	return p.FlushTimeout(5 * time.Second)
}

// IsConnected 检查发布器是否已连接
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed && p.Conn != nil && p.Conn.IsConnected()
}

// Close 关闭连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	// 更新指标
	monitor.GetMetrics().SetNATSConnected(false)

	if p.Conn != nil {
		p.Conn.Close()
	}
	return nil
}
