package nats

import (
	"encoding/json"
	"time"

	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const TopicConsultingRequest = "adaptbtc.consulting_request"

// ConsultingMessage 咨询请求消息，由下游负责邮件投递
type ConsultingMessage struct {
	RequestID  uint   `json:"request_id"` // 入库记录 id
	Name       string `json:"name"`
	Email      string `json:"email"`
	Engagement string `json:"engagement"`
	TeamSize   string `json:"team_size"`
	Details    string `json:"details"`
	Timestamp  int64  `json:"timestamp"` // 毫秒
}

// NewConsultingMessage 创建消息，Details 为空时给默认文案
func NewConsultingMessage(id uint, name, email, engagement, teamSize, details string) *ConsultingMessage {
	if details == "" {
		details = "(no additional details provided)"
	}
	return &ConsultingMessage{
		RequestID:  id,
		Name:       name,
		Email:      email,
		Engagement: engagement,
		TeamSize:   teamSize,
		Details:    details,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// Marshal 序列化消息
func (m *ConsultingMessage) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		logger.Error().Err(err).Msg("marshal consulting message failed")
		return nil, err
	}
	return data, nil
}
