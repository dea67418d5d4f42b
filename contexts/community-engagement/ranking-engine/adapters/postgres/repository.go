package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/ranking-engine/domain/errors"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
	"cinetrack/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const outboxTable = "ranking_outbox"

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WithinRankingScope runs fn in one transaction. LockItems takes the ranking
// row lock first, so concurrent recalculations of one ranking queue behind
// each other. The (ranking_id, position) unique constraint is deferred to
// commit, which lets positions be swapped row by row.
func (r *Repository) WithinRankingScope(
	ctx context.Context,
	rankingID string,
	fn func(tx ports.RecalcTx) error,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&recalcTx{repo: r, db: tx})
	})
	if err == nil {
		return nil
	}
	if isRetryable(err) || isUniqueViolation(err) {
		r.logger.Warn("ranking scope aborted by concurrent update",
			"event", "ranking_repo_scope_conflict",
			"module", "community-engagement/ranking-engine",
			"layer", "adapter",
			"ranking_id", strings.TrimSpace(rankingID),
			"error", err.Error(),
		)
		return domainerrors.ErrConflict
	}
	return err
}

type recalcTx struct {
	repo *Repository
	db   *gorm.DB
}

func (tx *recalcTx) LockItems(_ context.Context, rankingID string) ([]entities.RankingItem, error) {
	rankingID = strings.TrimSpace(rankingID)
	var owners []rankingModel
	if err := tx.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ranking_id = ?", rankingID).
		Find(&owners).Error; err != nil {
		return nil, tx.repo.logError("ranking_repo_lock_ranking_failed", err, "ranking_id", rankingID)
	}

	var rows []rankingItemModel
	if err := tx.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ranking_id = ?", rankingID).
		Order("item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, tx.repo.logError("ranking_repo_lock_items_failed", err, "ranking_id", rankingID)
	}
	return toItemEntities(rows), nil
}

func (tx *recalcTx) UpdatePositions(
	_ context.Context,
	rankingID string,
	changes []entities.PositionChange,
	updatedAt time.Time,
) error {
	rankingID = strings.TrimSpace(rankingID)
	for _, change := range changes {
		result := tx.db.
			Model(&rankingItemModel{}).
			Where("item_id = ? AND ranking_id = ?", change.ItemID, rankingID).
			Updates(map[string]any{
				"position":   change.To,
				"updated_at": updatedAt.UTC(),
			})
		if result.Error != nil {
			return tx.repo.logError("ranking_repo_update_position_failed", result.Error,
				"ranking_id", rankingID,
				"item_id", change.ItemID,
				"position", change.To,
			)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrItemNotFound
		}
	}
	return nil
}

func (tx *recalcTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	return tx.repo.appendOutbox(tx.db, envelope)
}

func (r *Repository) CreateRanking(ctx context.Context, ranking entities.Ranking, events ...ports.EventEnvelope) error {
	row := rankingModel{
		RankingID: strings.TrimSpace(ranking.RankingID),
		Title:     strings.TrimSpace(ranking.Title),
		Type:      strings.TrimSpace(ranking.Type),
		CreatedAt: ranking.CreatedAt.UTC(),
		UpdatedAt: ranking.UpdatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("ranking_repo_create_ranking_failed", err, "ranking_id", row.RankingID)
		}
		return r.appendAll(tx, events)
	})
}

func (r *Repository) GetRanking(ctx context.Context, rankingID string) (entities.Ranking, error) {
	var row rankingModel
	err := r.db.WithContext(ctx).
		Where("ranking_id = ?", strings.TrimSpace(rankingID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ranking{}, domainerrors.ErrRankingNotFound
		}
		return entities.Ranking{}, r.logError("ranking_repo_get_ranking_failed", err,
			"ranking_id", strings.TrimSpace(rankingID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListItems(ctx context.Context, rankingID string) ([]entities.RankingItem, error) {
	var rows []rankingItemModel
	if err := r.db.WithContext(ctx).
		Where("ranking_id = ?", strings.TrimSpace(rankingID)).
		Order("position ASC NULLS LAST").
		Order("item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ranking_repo_list_items_failed", err, "ranking_id", strings.TrimSpace(rankingID))
	}
	return toItemEntities(rows), nil
}

func (r *Repository) GetItem(ctx context.Context, itemID string) (entities.RankingItem, error) {
	var row rankingItemModel
	err := r.db.WithContext(ctx).
		Where("item_id = ?", strings.TrimSpace(itemID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RankingItem{}, domainerrors.ErrItemNotFound
		}
		return entities.RankingItem{}, r.logError("ranking_repo_get_item_failed", err,
			"item_id", strings.TrimSpace(itemID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) AddItem(ctx context.Context, item entities.RankingItem, events ...ports.EventEnvelope) error {
	row := rankingItemModel{
		ItemID:    strings.TrimSpace(item.ItemID),
		RankingID: strings.TrimSpace(item.RankingID),
		SubjectID: strings.TrimSpace(item.SubjectID),
		Score:     item.Score,
		CreatedAt: item.CreatedAt.UTC(),
		UpdatedAt: item.UpdatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isForeignKeyViolation(err) {
				return domainerrors.ErrRankingNotFound
			}
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("ranking_repo_add_item_failed", err,
				"ranking_id", row.RankingID,
				"item_id", row.ItemID,
			)
		}
		return r.appendAll(tx, events)
	})
}

func (r *Repository) UpdateItemScore(
	ctx context.Context,
	itemID string,
	score float64,
	updatedAt time.Time,
	events ...ports.EventEnvelope,
) (entities.RankingItem, error) {
	itemID = strings.TrimSpace(itemID)
	var item entities.RankingItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&rankingItemModel{}).
			Where("item_id = ?", itemID).
			Updates(map[string]any{
				"score":      score,
				"updated_at": updatedAt.UTC(),
			})
		if result.Error != nil {
			return r.logError("ranking_repo_update_score_failed", result.Error, "item_id", itemID)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrItemNotFound
		}
		var row rankingItemModel
		if err := tx.Where("item_id = ?", itemID).First(&row).Error; err != nil {
			return r.logError("ranking_repo_reload_item_failed", err, "item_id", itemID)
		}
		item = row.toEntity()
		return r.appendAll(tx, events)
	})
	if err != nil {
		return entities.RankingItem{}, err
	}
	return item, nil
}

func (r *Repository) RemoveItem(ctx context.Context, itemID string, events ...ports.EventEnvelope) error {
	itemID = strings.TrimSpace(itemID)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("item_id = ?", itemID).Delete(&rankingItemModel{})
		if result.Error != nil {
			return r.logError("ranking_repo_remove_item_failed", result.Error, "item_id", itemID)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrItemNotFound
		}
		return r.appendAll(tx, events)
	})
}

func (r *Repository) appendAll(db *gorm.DB, events []ports.EventEnvelope) error {
	for _, envelope := range events {
		if err := r.appendOutbox(db, envelope); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) appendOutbox(db *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("ranking_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	row := outbox.Message{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      datatypes.JSON(payload),
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := db.Table(outboxTable).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("ranking_repo_append_outbox_insert_failed", err, "outbox_id", row.OutboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outbox.Message
	if err := r.db.WithContext(ctx).
		Table(outboxTable).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ranking_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Table(outboxTable).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ranking_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("ranking_repo_reserve_event_failed", create.Error, "event_id", row.EventID)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("ranking_repo_reserve_event_load_existing_failed", err, "event_id", row.EventID)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) ReleaseEvent(ctx context.Context, eventID string, payloadHash string) error {
	eventID = strings.TrimSpace(eventID)
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND payload_hash = ?", eventID, strings.TrimSpace(payloadHash)).
		Delete(&eventDedupModel{}).Error
	if err != nil {
		return r.logError("ranking_repo_release_event_failed", err, "event_id", eventID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community-engagement/ranking-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ranking repository operation failed", fields...)
	return err
}

type rankingModel struct {
	RankingID string    `gorm:"column:ranking_id;primaryKey"`
	Title     string    `gorm:"column:title"`
	Type      string    `gorm:"column:type"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (rankingModel) TableName() string {
	return "rankings"
}

func (m rankingModel) toEntity() entities.Ranking {
	return entities.Ranking{
		RankingID: m.RankingID,
		Title:     m.Title,
		Type:      m.Type,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type rankingItemModel struct {
	ItemID    string    `gorm:"column:item_id;primaryKey"`
	RankingID string    `gorm:"column:ranking_id"`
	SubjectID string    `gorm:"column:subject_id"`
	Score     float64   `gorm:"column:score"`
	Position  *int      `gorm:"column:position"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (rankingItemModel) TableName() string {
	return "ranking_items"
}

func (m rankingItemModel) toEntity() entities.RankingItem {
	position := 0
	if m.Position != nil {
		position = *m.Position
	}
	return entities.RankingItem{
		ItemID:    m.ItemID,
		RankingID: m.RankingID,
		SubjectID: m.SubjectID,
		Score:     m.Score,
		Position:  position,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "ranking_event_dedup"
}

func toItemEntities(rows []rankingItemModel) []entities.RankingItem {
	items := make([]entities.RankingItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	default:
		return false
	}
}

var _ ports.RankingLedger = (*Repository)(nil)
var _ ports.RankingRepository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
