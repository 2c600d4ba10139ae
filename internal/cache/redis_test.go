package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"anjoman/internal/models"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEventHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewClientWith(rdb, time.Minute)

	event := &models.Event{ID: 7, Title: "Go Meetup", Price: 50000, Status: models.EventStatusPublished}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectGet("event:7").SetVal(string(data))

	got, err := c.GetEvent(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Title, got.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewClientWith(rdb, time.Minute)

	mock.ExpectGet("event:7").RedisNil()

	_, err := c.GetEvent(context.Background(), 7)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestSetEventUsesTTL(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewClientWith(rdb, 90*time.Second)

	event := &models.Event{ID: 7, Title: "Go Meetup"}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectSet("event:7", data, 90*time.Second).SetVal("OK")

	require.NoError(t, c.SetEvent(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}
