package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"webhook_processing/internal/cache"
	"webhook_processing/internal/models"
	"webhook_processing/internal/partner"
	"webhook_processing/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	outcome repository.Outcome
	err     error

	calls int
	last  *models.WebhookEvent
}

func (f *fakeStore) Insert(ctx context.Context, event *models.WebhookEvent) (repository.Outcome, error) {
	f.calls++
	f.last = event
	if f.outcome == repository.OutcomeInserted {
		event.ID = int64(f.calls)
		event.ReceivedAt = time.Now()
	}
	return f.outcome, f.err
}

type fakeAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeAlerter) Notify(subject, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
}

func (f *fakeAlerter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects)
}

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string][]byte)} }

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := f.data[key]
	return b, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeCache) Close() error { return nil }

func newTestRegistry() *partner.Registry {
	reg := partner.NewRegistry()
	reg.Register(partner.NewEpnBz())
	return reg
}

func webhookRequest(query string) *http.Request {
	return httptest.NewRequest("GET", "/webhook/tok?"+query, nil)
}

func TestProcessInserted(t *testing.T) {
	store := &fakeStore{outcome: repository.OutcomeInserted}
	svc := NewWebhookService(newTestRegistry(), store, nil, 0, nil, nil, nil)

	r := webhookRequest("click_id=123&order_number=ORDER-001&uniq_id=EPN-12345&order_status=waiting&revenue=1500&commission_fee=100")

	result, err := svc.Process(context.Background(), "epn_bz", r, nil)
	require.NoError(t, err)

	assert.Equal(t, repository.OutcomeInserted, result.Outcome)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "EPN-12345", store.last.UniqID)
	assert.Equal(t, "1500.00", store.last.Revenue.StringFixed(2))
}

func TestProcessDuplicateIsSuccess(t *testing.T) {
	store := &fakeStore{outcome: repository.OutcomeDuplicate}
	alerts := &fakeAlerter{}
	svc := NewWebhookService(newTestRegistry(), store, nil, 0, alerts, nil, nil)

	r := webhookRequest("click_id=123&order_number=ORDER-001&uniq_id=EPN-12345&order_status=waiting")

	result, err := svc.Process(context.Background(), "epn_bz", r, nil)
	require.NoError(t, err)

	assert.Equal(t, repository.OutcomeDuplicate, result.Outcome)
	assert.Equal(t, 0, alerts.count())
}

func TestProcessUnavailableAlertsOnce(t *testing.T) {
	store := &fakeStore{
		outcome: repository.OutcomeUnavailable,
		err:     fmt.Errorf("%w: connection refused", repository.ErrUnavailable),
	}
	alerts := &fakeAlerter{}
	svc := NewWebhookService(newTestRegistry(), store, nil, 0, alerts, nil, nil)

	r := webhookRequest("click_id=123&order_number=ORDER-001&uniq_id=EPN-12345")

	_, err := svc.Process(context.Background(), "epn_bz", r, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.Equal(t, 1, alerts.count())
}

func TestProcessValidationFailureSkipsStore(t *testing.T) {
	store := &fakeStore{outcome: repository.OutcomeInserted}
	alerts := &fakeAlerter{}
	svc := NewWebhookService(newTestRegistry(), store, nil, 0, alerts, nil, nil)

	r := webhookRequest("order_number=ORDER-001")

	_, err := svc.Process(context.Background(), "epn_bz", r, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, store.calls)
	assert.Equal(t, 0, alerts.count())
}

func TestProcessUnknownPartner(t *testing.T) {
	store := &fakeStore{outcome: repository.OutcomeInserted}
	svc := NewWebhookService(newTestRegistry(), store, nil, 0, nil, nil, nil)

	r := webhookRequest("click_id=123&order_number=ORDER-001")

	_, err := svc.Process(context.Background(), "admitad", r, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPartner)
	assert.Equal(t, 0, store.calls)
}

func TestProcessCacheHitShortCircuitsStore(t *testing.T) {
	store := &fakeStore{outcome: repository.OutcomeInserted}
	c := newFakeCache()
	svc := NewWebhookService(newTestRegistry(), store, c, time.Hour, nil, nil, nil)

	r := webhookRequest("click_id=123&order_number=ORDER-001&uniq_id=EPN-12345&order_status=waiting")

	// первая доставка проходит в БД и запоминает ключ
	result, err := svc.Process(context.Background(), "epn_bz", r, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.OutcomeInserted, result.Outcome)
	assert.Equal(t, 1, store.calls)

	key := cache.EventKey("epn_bz", "EPN-12345", "waiting")
	_, hit, _ := c.Get(context.Background(), key)
	assert.True(t, hit)

	// повторная доставка того же статуса гасится кэшем без похода в БД
	result, err = svc.Process(context.Background(), "epn_bz", r, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.OutcomeDuplicate, result.Outcome)
	assert.Equal(t, 1, store.calls)
}

func TestProcessDistinctStatusBypassesCache(t *testing.T) {
	store := &fakeStore{outcome: repository.OutcomeInserted}
	c := newFakeCache()
	svc := NewWebhookService(newTestRegistry(), store, c, time.Hour, nil, nil, nil)

	waiting := webhookRequest("click_id=123&order_number=ORDER-001&uniq_id=EPN-12345&order_status=waiting")
	completed := webhookRequest("click_id=123&order_number=ORDER-001&uniq_id=EPN-12345&order_status=completed")

	_, err := svc.Process(context.Background(), "epn_bz", waiting, nil)
	require.NoError(t, err)

	// смена статуса - новое событие жизненного цикла, не дубликат
	result, err := svc.Process(context.Background(), "epn_bz", completed, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.OutcomeInserted, result.Outcome)
	assert.Equal(t, 2, store.calls)
}

func TestProcessPublishesInsertedEvents(t *testing.T) {
	store := &fakeStore{outcome: repository.OutcomeInserted}
	publishChan := make(chan PublishJob, 1)
	svc := NewWebhookService(newTestRegistry(), store, nil, 0, nil, publishChan, nil)

	r := webhookRequest("click_id=123&order_number=ORDER-001&uniq_id=EPN-12345")

	_, err := svc.Process(context.Background(), "epn_bz", r, nil)
	require.NoError(t, err)

	select {
	case job := <-publishChan:
		assert.Equal(t, "EPN-12345", job.Event.UniqID)
	default:
		t.Fatal("expected a publish job for the inserted event")
	}
}

func TestProcessDuplicateNotPublished(t *testing.T) {
	store := &fakeStore{outcome: repository.OutcomeDuplicate}
	publishChan := make(chan PublishJob, 1)
	svc := NewWebhookService(newTestRegistry(), store, nil, 0, nil, publishChan, nil)

	r := webhookRequest("click_id=123&order_number=ORDER-001&uniq_id=EPN-12345")

	_, err := svc.Process(context.Background(), "epn_bz", r, nil)
	require.NoError(t, err)
	assert.Empty(t, publishChan)
}
