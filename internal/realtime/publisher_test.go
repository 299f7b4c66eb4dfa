package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.topics = append(p.topics, topic)
	return p.err
}

func TestTopicHelpers(t *testing.T) {
	assert.Equal(t, "dashboard-update:5", DashboardTopic(5))
	assert.Equal(t, "badge-promotion:5", BadgePromotionTopic(5))
	assert.Equal(t, "notifications:5", NotificationsTopic(5))
}

func TestTopicOwner(t *testing.T) {
	id, perUser, err := TopicOwner(BadgePromotionTopic(42))
	require.NoError(t, err)
	assert.True(t, perUser)
	assert.Equal(t, int64(42), id)

	_, perUser, err = TopicOwner(TopicLeaderboardUpdate)
	require.NoError(t, err)
	assert.False(t, perUser)

	_, _, err = TopicOwner("dashboard-update:abc")
	assert.Error(t, err)
	_, _, err = TopicOwner("dashboard-update:0")
	assert.Error(t, err)
	_, _, err = TopicOwner("chat:1")
	assert.Error(t, err)
}

func TestMultiPublisher_PublishesToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("down")}

	err := MultiPublisher{failing, ok, NopPublisher{}}.Publish(context.Background(), TopicLeaderboardUpdate, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, []string{TopicLeaderboardUpdate}, ok.topics)
	assert.Equal(t, []string{TopicLeaderboardUpdate}, failing.topics)

	assert.NoError(t, MultiPublisher{ok}.Publish(context.Background(), "x", nil))
}

func TestRedisPublisher_ChannelAndUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	p := NewRedisPublisher(client, "unihub:", nil)
	assert.Equal(t, "unihub:leaderboard-update", p.Channel(TopicLeaderboardUpdate))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, p.Publish(ctx, TopicLeaderboardUpdate, map[string]string{"type": "LEADERBOARD_UPDATE"}))
	assert.Error(t, p.Publish(ctx, TopicLeaderboardUpdate, make(chan int)))
}
