package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestConsultingMessage_Marshal(t *testing.T) {
	msg := NewConsultingMessage(7, "Ada", "ada@example.com", "Treasury", "6-20", "")

	data, err := msg.Marshal()
	require.NoError(t, err)

	parsed := gjson.ParseBytes(data)
	assert.Equal(t, int64(7), parsed.Get("request_id").Int())
	assert.Equal(t, "ada@example.com", parsed.Get("email").String())
	assert.Equal(t, "6-20", parsed.Get("team_size").String())
	assert.Equal(t, "(no additional details provided)", parsed.Get("details").String())
	assert.Positive(t, parsed.Get("timestamp").Int())
}

func TestNewPublisher_Unreachable(t *testing.T) {
	_, err := NewPublisher("nats://127.0.0.1:1", "")
	assert.Error(t, err)
}

func TestPublisher_ClosedRejects(t *testing.T) {
	p := &Publisher{subject: TopicConsultingRequest, closed: true}

	assert.False(t, p.IsConnected())
	assert.ErrorIs(t, p.PublishConsulting(NewConsultingMessage(1, "a", "a@b", "c", "d", "e")), ErrPublisherClosed)
	assert.NoError(t, p.Close())
}
