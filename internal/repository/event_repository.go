package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"webhook_processing/internal/models"

	sq "github.com/Masterminds/squirrel"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnavailable помечает сбой хранилища: relay должен получить 503 и
// повторить доставку.
var ErrUnavailable = errors.New("storage unavailable")

// Outcome is the three-way result of an idempotent insert.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeDuplicate
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type EventRepository struct {
	db      *pgxpool.Pool
	sb      sq.StatementBuilderType
	table   string
	timeout time.Duration
}

func NewEventRepository(db *pgxpool.Pool, table string, timeout time.Duration) *EventRepository {
	if table == "" {
		table = "webhook_events"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventRepository{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		table:   table,
		timeout: timeout,
	}
}

// Insert пытается сохранить событие. Уникальность по
// (partner, uniq_id, order_status) проверяет сама БД одним оператором:
// конкурентные вставки одного ключа никогда не дадут две строки.
//
// Insert deliberately does not use the request context: once a notification
// is accepted for storage the write should survive a client disconnect; the
// relay retries anyway and the unique key absorbs the re-delivery.
func (r *EventRepository) Insert(ctx context.Context, event *models.WebhookEvent) (Outcome, error) {
	if event == nil {
		return OutcomeUnavailable, fmt.Errorf("event is nil")
	}

	query := r.sb.
		Insert(r.table).
		Columns(
			"partner",
			"event_type",
			"click_id",
			"order_number",
			"uniq_id",
			"order_status",
			"offer_name",
			"offer_type",
			"offer_id",
			"type_id",
			"sub",
			"sub2",
			"sub3",
			"sub4",
			"sub5",
			"revenue",
			"commission_fee",
			"currency",
			"ip",
			"ipv6",
			"user_agent_epn",
			"click_time",
			"time_of_order",
			"client_ip",
			"user_agent",
			"raw_data",
		).
		Values(
			event.Partner,
			event.EventType,
			event.ClickID,
			event.OrderNumber,
			event.UniqID,
			event.OrderStatus,
			event.OfferName,
			event.OfferType,
			event.OfferID,
			event.TypeID,
			event.Sub,
			event.Sub2,
			event.Sub3,
			event.Sub4,
			event.Sub5,
			event.Revenue,
			event.CommissionFee,
			event.Currency,
			event.IP,
			event.IPv6,
			event.UserAgentEPN,
			event.ClickTime,
			event.TimeOfOrder,
			event.ClientIP,
			event.UserAgent,
			event.RawData,
		).
		Suffix(`
ON CONFLICT (partner, uniq_id, order_status) DO NOTHING
RETURNING id, received_at
`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return OutcomeUnavailable, fmt.Errorf("build insert event sql: %w", err)
	}

	// свой таймаут вместо дедлайна запроса: disconnect клиента не должен
	// оборвать запись
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	err = r.db.QueryRow(dbCtx, sqlStr, args...).Scan(&event.ID, &event.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// конфликт по уникальному ключу: повторная доставка того же статуса
			return OutcomeDuplicate, nil
		}
		return OutcomeUnavailable, fmt.Errorf("%w: insert event: %v", ErrUnavailable, err)
	}

	return OutcomeInserted, nil
}

// CountByStatus returns row counts grouped by order_status, for the metrics
// gauge collector.
func (r *EventRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	query := r.sb.
		Select("order_status", "COUNT(*)").
		From(r.table).
		GroupBy("order_status")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count events sql: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var cnt int64
		if err := rows.Scan(&status, &cnt); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[status] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}

	return counts, nil
}

// InitSchema создает таблицу событий, если её ещё нет. Ошибка не фатальна:
// сервис может подняться раньше БД, relay дотянет пропущенное ретраями.
func (r *EventRepository) InitSchema(ctx context.Context, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}

	createTable := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id             BIGSERIAL PRIMARY KEY,
	partner        VARCHAR(50)  NOT NULL DEFAULT 'epn_bz',
	event_type     VARCHAR(100) NOT NULL,

	click_id       VARCHAR(255) NOT NULL,
	order_number   VARCHAR(255) NOT NULL,
	uniq_id        VARCHAR(255) NOT NULL,
	order_status   VARCHAR(50)  NOT NULL,

	offer_name     VARCHAR(500),
	offer_type     VARCHAR(100),
	offer_id       VARCHAR(255),
	type_id        INTEGER,
	sub            VARCHAR(255),
	sub2           VARCHAR(255),
	sub3           VARCHAR(255),
	sub4           VARCHAR(255),
	sub5           VARCHAR(255),
	revenue        NUMERIC(15,2) NOT NULL DEFAULT 0.00,
	commission_fee NUMERIC(15,2) NOT NULL DEFAULT 0.00,
	currency       VARCHAR(10)   NOT NULL DEFAULT 'RUB',
	ip             VARCHAR(45),
	ipv6           VARCHAR(45),
	user_agent_epn TEXT,
	click_time     VARCHAR(50),
	time_of_order  VARCHAR(50),

	client_ip      VARCHAR(45),
	user_agent     TEXT,
	raw_data       JSONB,
	received_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT %[1]s_partner_uniq_status UNIQUE (partner, uniq_id, order_status)
)
`, r.table)

	// по одному стейтменту на Exec: extended protocol pgx не принимает
	// несколько команд разом
	stmts := []string{
		createTable,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_click_id ON %[1]s (click_id)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_order_number ON %[1]s (order_number)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_partner_status ON %[1]s (partner, order_status)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_received_at ON %[1]s (received_at)`, r.table),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			logger.Printf("init schema for %s failed: %v", r.table, err)
			return
		}
	}
	logger.Printf("table %s ready", r.table)
}
