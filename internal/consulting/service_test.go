package consulting

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adaptbtc/adaptbtc-server/config"
	"github.com/adaptbtc/adaptbtc-server/internal/dao"
	"github.com/adaptbtc/adaptbtc-server/internal/models"
	"github.com/adaptbtc/adaptbtc-server/internal/nats"
)

type fakePublisher struct {
	err  error
	msgs []*nats.ConsultingMessage
}

func (f *fakePublisher) PublishConsulting(msg *nats.ConsultingMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fakeMailer struct {
	err  error
	sent []*models.ConsultingRequest
}

func (f *fakeMailer) Deliver(_ context.Context, record *models.ConsultingRequest) error {
	f.sent = append(f.sent, record)
	return f.err
}

type countingMetrics map[string]int

func (m countingMetrics) Consulting(result string) { m[result]++ }

func setupStore(t *testing.T) (*dao.ConsultingDAO, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "consulting.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ConsultingRequest{}))
	return dao.NewConsultingDAO(db), db
}

func validRequest() Request {
	return Request{
		Name:       "  Ada Lovelace ",
		Email:      " ada@example.com ",
		Engagement: "Treasury setup",
		TeamSize:   "6-20",
		Details:    "  multisig for a small company  ",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Request)
		want error
	}{
		{"valid", func(*Request) {}, nil},
		{"missing name", func(r *Request) { r.Name = "   " }, ErrMissingFields},
		{"missing team size", func(r *Request) { r.TeamSize = "" }, ErrMissingFields},
		{"details optional", func(r *Request) { r.Details = "" }, nil},
		{"bad email", func(r *Request) { r.Email = "ada.example.com" }, ErrInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mod(&req)
			assert.Equal(t, tc.want, req.Normalize().Validate())
		})
	}

	assert.Equal(t, "Please complete all required fields.", ErrMissingFields.Error())
	assert.Equal(t, "Enter a valid email address.", ErrInvalidEmail.Error())
}

func TestSubmit_Sent(t *testing.T) {
	store, db := setupStore(t)
	mailer := &fakeMailer{}
	pub := &fakePublisher{}
	metrics := countingMetrics{}
	svc := NewService(store, mailer, WithPublisher(pub), WithMetrics(metrics))

	record, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", record.Name)
	assert.Equal(t, "multisig for a small company", record.Details)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, record.ID, mailer.sent[0].ID)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, record.ID, pub.msgs[0].RequestID)
	assert.Equal(t, "ada@example.com", pub.msgs[0].Email)

	var stored models.ConsultingRequest
	require.NoError(t, db.First(&stored, record.ID).Error)
	assert.Equal(t, models.ConsultingStatusSent, stored.Status)
	assert.Equal(t, 1, metrics[ResultSent])
}

func TestSubmit_Invalid(t *testing.T) {
	store, db := setupStore(t)
	mailer := &fakeMailer{}
	metrics := countingMetrics{}
	svc := NewService(store, mailer, WithMetrics(metrics))

	req := validRequest()
	req.Email = "nobody"
	_, err := svc.Submit(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Enter a valid email address.", verr.Message)
	assert.Empty(t, mailer.sent)
	assert.Equal(t, 1, metrics[ResultInvalid])

	var count int64
	db.Model(&models.ConsultingRequest{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmit_DeliveryFails(t *testing.T) {
	store, db := setupStore(t)
	pub := &fakePublisher{}
	svc := NewService(store, &fakeMailer{err: errors.New("failed to send email: 401")}, WithPublisher(pub))

	record, err := svc.Submit(context.Background(), validRequest())

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Unable to send request: failed to send email: 401", err.Error())
	assert.Empty(t, pub.msgs, "no notification for undelivered requests")

	var stored models.ConsultingRequest
	require.NoError(t, db.First(&stored, record.ID).Error)
	assert.Equal(t, models.ConsultingStatusFailed, stored.Status)
	assert.Equal(t, "failed to send email: 401", stored.Error)
}

func TestSubmit_PublishFailureIgnored(t *testing.T) {
	store, db := setupStore(t)
	svc := NewService(store, &fakeMailer{}, WithPublisher(&fakePublisher{err: errors.New("nats: timeout")}))

	record, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	var stored models.ConsultingRequest
	require.NoError(t, db.First(&stored, record.ID).Error)
	assert.Equal(t, models.ConsultingStatusSent, stored.Status)
}

func TestSubmit_NotConfigured(t *testing.T) {
	store, _ := setupStore(t)

	unconfigured, err := NewMailer(config.Email{})
	require.NoError(t, err)

	for _, deliverer := range []Deliverer{nil, unconfigured} {
		svc := NewService(store, deliverer)
		_, err := svc.Submit(context.Background(), validRequest())
		assert.ErrorIs(t, err, ErrDeliveryNotConfigured)
		assert.Equal(t, "Unable to send request: Email delivery is not configured on the server. Please contact support@adaptbtc.com directly.", err.Error())
	}
}
