package email

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swimslot/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

func newTestService(rdb *redis.Client) *Service {
	s := NewWithClient(SMTPConfig{
		Host:     "smtp.test.com",
		Port:     "587",
		User:     "test@example.com",
		Password: "password",
		From:     "noreply@swimslot.test",
		FromName: "Swim School",
	}, rdb)
	s.retryDelay = 0
	return s
}

func jobPayload(t *testing.T, job EmailJob) string {
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return string(data)
}

func TestSend(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush(queueKey, `.*"type":"reschedule".*`).SetVal(1)

	svc := newTestService(db)

	err := svc.Send(context.Background(), "parent@example.com", "Pat", TypeReschedule, "Hello", "Test body")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush(queueKey, `.*`).SetErr(assert.AnError)

	svc := newTestService(db)

	err := svc.Send(context.Background(), "parent@example.com", "Pat", TypeReschedule, "Hello", "Test body")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectLLen(queueKey).SetVal(5)

	svc := newTestService(db)

	assert.Equal(t, int64(5), svc.QueueLength(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLengthError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectLLen(queueKey).SetErr(assert.AnError)

	svc := newTestService(db)

	assert.Equal(t, int64(0), svc.QueueLength(context.Background()))
}

func TestProcessNextDelivers(t *testing.T) {
	db, mock := redismock.NewClientMock()
	job := EmailJob{To: "parent@example.com", Type: TypeCancellation, Subject: "s", Body: "b"}
	mock.ExpectBRPop(2*time.Second, queueKey).SetVal([]string{queueKey, jobPayload(t, job)})

	svc := newTestService(db)
	var delivered []EmailJob
	svc.send = func(j EmailJob) error {
		delivered = append(delivered, j)
		return nil
	}

	svc.processNext(context.Background())

	require.Len(t, delivered, 1)
	assert.Equal(t, 1, delivered[0].Tries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextRequeuesOnFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	job := EmailJob{To: "parent@example.com", Type: TypeCancellation}
	mock.ExpectBRPop(2*time.Second, queueKey).SetVal([]string{queueKey, jobPayload(t, job)})
	mock.Regexp().ExpectLPush(queueKey, `.*"tries":1.*`).SetVal(1)

	svc := newTestService(db)
	svc.send = func(EmailJob) error { return errors.New("connection refused") }

	svc.processNext(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextParksAfterLastAttempt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	job := EmailJob{To: "parent@example.com", Type: TypeCancellation, Tries: maxTries - 1}
	mock.ExpectBRPop(2*time.Second, queueKey).SetVal([]string{queueKey, jobPayload(t, job)})
	mock.Regexp().ExpectLPush(failedQueueKey, `.*connection refused.*`).SetVal(1)

	svc := newTestService(db)
	svc.send = func(EmailJob) error { return errors.New("connection refused") }

	svc.processNext(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextDropsMalformedJob(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectBRPop(2*time.Second, queueKey).SetVal([]string{queueKey, "{not json"})

	svc := newTestService(db)
	svc.send = func(EmailJob) error {
		t.Fatal("malformed job must not be delivered")
		return nil
	}

	svc.processNext(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}
