package consulting

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
	"github.com/adaptbtc/adaptbtc-server/internal/nats"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const (
	ResultSent    = "sent"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

// Request 咨询表单
type Request struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Engagement string `json:"engagement"`
	TeamSize   string `json:"team_size"`
	Details    string `json:"details"`
}

// Normalize 去掉各字段首尾空白
func (r Request) Normalize() Request {
	return Request{
		Name:       strings.TrimSpace(r.Name),
		Email:      strings.TrimSpace(r.Email),
		Engagement: strings.TrimSpace(r.Engagement),
		TeamSize:   strings.TrimSpace(r.TeamSize),
		Details:    strings.TrimSpace(r.Details),
	}
}

// Validate 必填项与邮箱格式
func (r Request) Validate() error {
	if r.Name == "" || r.Email == "" || r.Engagement == "" || r.TeamSize == "" {
		return ErrMissingFields
	}
	if !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Store 咨询请求持久化
type Store interface {
	Create(req *models.ConsultingRequest) error
	UpdateStatus(id uint, status, errMsg string) error
}

// Deliverer 咨询请求投递，失败即请求失败
type Deliverer interface {
	Deliver(ctx context.Context, record *models.ConsultingRequest) error
}

// Publisher 投递成功后的消息通知，失败只记日志
type Publisher interface {
	PublishConsulting(msg *nats.ConsultingMessage) error
}

// Metrics 投递结果计数
type Metrics interface {
	Consulting(result string)
}

type noopMetrics struct{}

func (noopMetrics) Consulting(string) {}

type Service struct {
	store     Store
	deliverer Deliverer
	publisher Publisher
	metrics   Metrics
	log       zerolog.Logger
}

type Option func(*Service)

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService deliverer 为 nil 时所有请求都会返回 DeliveryError
func NewService(store Store, deliverer Deliverer, opts ...Option) *Service {
	s := &Service{
		store:     store,
		deliverer: deliverer,
		metrics:   noopMetrics{},
		log:       logger.Component("consulting"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit 校验、入库并投递
func (s *Service) Submit(ctx context.Context, req Request) (*models.ConsultingRequest, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		s.metrics.Consulting(ResultInvalid)
		return nil, err
	}

	record := &models.ConsultingRequest{
		Name:       req.Name,
		Email:      req.Email,
		Engagement: req.Engagement,
		TeamSize:   req.TeamSize,
		Details:    req.Details,
		Status:     models.ConsultingStatusPending,
	}
	if err := s.store.Create(record); err != nil {
		s.metrics.Consulting(ResultFailed)
		return nil, fmt.Errorf("save consulting request: %w", err)
	}

	if err := s.deliver(ctx, record); err != nil {
		s.metrics.Consulting(ResultFailed)
		s.log.Error().Err(err).Uint("id", record.ID).Str("engagement", record.Engagement).Msg("consulting request delivery failed")

		record.Status = models.ConsultingStatusFailed
		record.Error = err.Error()
		if uerr := s.store.UpdateStatus(record.ID, record.Status, record.Error); uerr != nil {
			s.log.Error().Err(uerr).Uint("id", record.ID).Msg("update consulting status failed")
		}
		return record, &DeliveryError{Err: err}
	}

	record.Status = models.ConsultingStatusSent
	if err := s.store.UpdateStatus(record.ID, record.Status, ""); err != nil {
		s.log.Error().Err(err).Uint("id", record.ID).Msg("update consulting status failed")
	}
	s.metrics.Consulting(ResultSent)
	s.log.Info().Uint("id", record.ID).Str("engagement", record.Engagement).Str("team_size", record.TeamSize).Msg("consulting request sent")

	s.notify(record)
	return record, nil
}

func (s *Service) deliver(ctx context.Context, record *models.ConsultingRequest) error {
	if s.deliverer == nil {
		return ErrDeliveryNotConfigured
	}
	return s.deliverer.Deliver(ctx, record)
}

func (s *Service) notify(record *models.ConsultingRequest) {
	if s.publisher == nil {
		return
	}
	msg := nats.NewConsultingMessage(record.ID, record.Name, record.Email, record.Engagement, record.TeamSize, record.Details)
	if err := s.publisher.PublishConsulting(msg); err != nil {
		s.log.Warn().Err(err).Uint("id", record.ID).Msg("publish consulting notification failed")
	}
}
