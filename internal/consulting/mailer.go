package consulting

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/adaptbtc/adaptbtc-server/config"
	"github.com/adaptbtc/adaptbtc-server/internal/models"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const (
	SupportEmail = "support@adaptbtc.com"
	MailSubject  = "New AdaptBTC consulting request"
	NoDetails    = "(no additional details provided)"

	sendTimeout = 10 * time.Second
)

// Mailer 把咨询请求发到支持邮箱，Reply-To 为提交人
type Mailer struct {
	client *resend.Client
	from   string
	to     string
	log    zerolog.Logger
}

// NewMailer api_key 为空时返回的 Mailer 每次投递都返回 ErrDeliveryNotConfigured
func NewMailer(cfg config.Email) (*Mailer, error) {
	m := &Mailer{
		from: orDefault(cfg.From, SupportEmail),
		to:   orDefault(cfg.To, SupportEmail),
		log:  logger.Component("mailer"),
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return m, nil
	}

	m.client = resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid email base url: %w", err)
		}
		m.client.BaseURL = base
	}
	return m, nil
}

func (m *Mailer) Configured() bool {
	return m != nil && m.client != nil
}

// Deliver 发送咨询邮件
func (m *Mailer) Deliver(ctx context.Context, record *models.ConsultingRequest) error {
	if !m.Configured() {
		return ErrDeliveryNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: MailSubject,
		Text:    MailBody(record),
		ReplyTo: record.Email,
		Tags:    []resend.Tag{{Name: "category", Value: "consulting"}},
	})
	if err != nil {
		m.log.Error().Err(err).Uint("id", record.ID).Str("to", m.to).Msg("failed to send consulting email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Info().Str("email_id", sent.Id).Uint("id", record.ID).Str("to", m.to).Msg("consulting email sent")
	return nil
}

// MailBody 邮件正文
func MailBody(record *models.ConsultingRequest) string {
	details := record.Details
	if details == "" {
		details = NoDetails
	}
	return strings.Join([]string{
		"A new consulting request was submitted via adaptbtc.com.",
		"",
		"Name: " + record.Name,
		"Email: " + record.Email,
		"Engagement: " + record.Engagement,
		"Team size: " + record.TeamSize,
		"",
		"Notes:",
		details,
	}, "\n")
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
