package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
	"cinetrack/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const outboxTable = "poll_outbox"

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

// WithinVoteScope runs fn in one database transaction. The ledger row lock
// taken by LockVote serializes scopes for the same (poll, user); counter
// updates are single-statement increments on the poll row.
func (r *Repository) WithinVoteScope(
	ctx context.Context,
	pollID string,
	userID string,
	fn func(tx ports.VoteTx) error,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&voteTx{repo: r, db: tx})
	})
	if err == nil {
		return nil
	}
	if isRetryable(err) {
		r.logger.Warn("vote scope aborted by lock contention",
			"event", "poll_repo_vote_scope_conflict",
			"module", "community-engagement/poll-voting",
			"layer", "adapter",
			"poll_id", strings.TrimSpace(pollID),
			"user_id", strings.TrimSpace(userID),
			"error", err.Error(),
		)
		return domainerrors.ErrConflict
	}
	return err
}

type voteTx struct {
	repo *Repository
	db   *gorm.DB
}

func (tx *voteTx) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	return tx.repo.getPoll(tx.db, pollID)
}

func (tx *voteTx) LockVote(_ context.Context, pollID string, userID string) (entities.Vote, bool, error) {
	var row pollVoteModel
	err := tx.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("poll_id = ? AND user_id = ?", strings.TrimSpace(pollID), strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, false, nil
		}
		return entities.Vote{}, false, tx.repo.logError("poll_repo_lock_vote_failed", err,
			"poll_id", strings.TrimSpace(pollID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	return row.toEntity(), true, nil
}

func (tx *voteTx) InsertVote(_ context.Context, vote entities.Vote) (bool, error) {
	row := pollVoteModelFromEntity(vote)
	create := tx.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isForeignKeyViolation(create.Error) {
			return false, domainerrors.ErrPollNotFound
		}
		return false, tx.repo.logError("poll_repo_insert_vote_failed", create.Error,
			"poll_id", row.PollID,
			"user_id", row.UserID,
		)
	}
	return create.RowsAffected > 0, nil
}

func (tx *voteTx) UpdateVote(_ context.Context, vote entities.Vote) error {
	result := tx.db.
		Model(&pollVoteModel{}).
		Where("poll_id = ? AND user_id = ?", strings.TrimSpace(vote.PollID), strings.TrimSpace(vote.UserID)).
		Updates(map[string]any{
			"selected_option": vote.SelectedOption,
			"voted_at":        vote.VotedAt.UTC(),
		})
	if result.Error != nil {
		return tx.repo.logError("poll_repo_update_vote_failed", result.Error,
			"poll_id", strings.TrimSpace(vote.PollID),
			"user_id", strings.TrimSpace(vote.UserID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoteNotFound
	}
	return nil
}

func (tx *voteTx) ShiftCounters(_ context.Context, pollID string, from int, to int) error {
	if from < 0 || from > entities.MaxOptions || to < 1 || to > entities.MaxOptions {
		return domainerrors.ErrInvalidOption
	}
	if from == to {
		return nil
	}
	updates := map[string]any{
		counterColumn(to): gorm.Expr(counterColumn(to) + " + 1"),
	}
	if from > 0 {
		column := counterColumn(from)
		updates[column] = gorm.Expr("CASE WHEN " + column + " > 0 THEN " + column + " - 1 ELSE 0 END")
	}
	result := tx.db.
		Model(&pollModel{}).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Updates(updates)
	if result.Error != nil {
		return tx.repo.logError("poll_repo_shift_counters_failed", result.Error,
			"poll_id", strings.TrimSpace(pollID),
			"from_option", from,
			"to_option", to,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPollNotFound
	}
	return nil
}

func (tx *voteTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	return tx.repo.appendOutbox(tx.db, envelope)
}

func (r *Repository) CreatePoll(ctx context.Context, poll entities.Poll, events ...ports.EventEnvelope) error {
	row := pollModelFromEntity(poll)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("poll_repo_create_poll_failed", err, "poll_id", row.PollID)
		}
		for _, envelope := range events {
			if err := r.appendOutbox(tx, envelope); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	return r.getPoll(r.db.WithContext(ctx), pollID)
}

func (r *Repository) getPoll(db *gorm.DB, pollID string) (entities.Poll, error) {
	var row pollModel
	err := db.
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("poll_repo_get_poll_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPolls(ctx context.Context, activeOnly bool) ([]entities.Poll, error) {
	tx := r.db.WithContext(ctx).Model(&pollModel{})
	if activeOnly {
		tx = tx.Where("active = ?", true)
	}
	var rows []pollModel
	if err := tx.Order("created_at DESC").Order("poll_id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_polls_failed", err, "active_only", activeOnly)
	}
	items := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SetPollActive(
	ctx context.Context,
	pollID string,
	active bool,
	updatedAt time.Time,
	events ...ports.EventEnvelope,
) (entities.Poll, error) {
	pollID = strings.TrimSpace(pollID)
	var poll entities.Poll
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&pollModel{}).
			Where("poll_id = ?", pollID).
			Updates(map[string]any{
				"active":     active,
				"updated_at": updatedAt.UTC(),
			})
		if result.Error != nil {
			return r.logError("poll_repo_set_active_failed", result.Error, "poll_id", pollID)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrPollNotFound
		}
		loaded, err := r.getPoll(tx, pollID)
		if err != nil {
			return err
		}
		poll = loaded
		for _, envelope := range events {
			if err := r.appendOutbox(tx, envelope); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return entities.Poll{}, err
	}
	return poll, nil
}

func (r *Repository) DeletePoll(ctx context.Context, pollID string, events ...ports.EventEnvelope) error {
	pollID = strings.TrimSpace(pollID)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", pollID).Delete(&pollVoteModel{}).Error; err != nil {
			return r.logError("poll_repo_delete_votes_failed", err, "poll_id", pollID)
		}
		result := tx.Where("poll_id = ?", pollID).Delete(&pollModel{})
		if result.Error != nil {
			return r.logError("poll_repo_delete_poll_failed", result.Error, "poll_id", pollID)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrPollNotFound
		}
		for _, envelope := range events {
			if err := r.appendOutbox(tx, envelope); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetVote(ctx context.Context, pollID string, userID string) (entities.Vote, error) {
	var row pollVoteModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ? AND user_id = ?", strings.TrimSpace(pollID), strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, domainerrors.ErrVoteNotFound
		}
		return entities.Vote{}, r.logError("poll_repo_get_vote_failed", err,
			"poll_id", strings.TrimSpace(pollID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) CountVotesByOption(ctx context.Context, pollID string) (map[int]int64, error) {
	type optionCount struct {
		SelectedOption int
		Votes          int64
	}
	var rows []optionCount
	err := r.db.WithContext(ctx).
		Model(&pollVoteModel{}).
		Select("selected_option, COUNT(*) AS votes").
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Group("selected_option").
		Scan(&rows).
		Error
	if err != nil {
		return nil, r.logError("poll_repo_count_votes_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	counts := make(map[int]int64, len(rows))
	for _, row := range rows {
		counts[row.SelectedOption] = row.Votes
	}
	return counts, nil
}

func (r *Repository) appendOutbox(db *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("poll_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
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
		return r.logError("poll_repo_append_outbox_insert_failed", err, "outbox_id", row.OutboxID)
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
		return nil, r.logError("poll_repo_list_pending_outbox_failed", err, "limit", limit)
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
		return r.logError("poll_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community-engagement/poll-voting",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("poll repository operation failed", fields...)
	return err
}

type pollModel struct {
	PollID     string    `gorm:"column:poll_id;primaryKey"`
	OwnerID    string    `gorm:"column:owner_id"`
	Question   string    `gorm:"column:question"`
	Option1    string    `gorm:"column:option_1"`
	Option2    string    `gorm:"column:option_2"`
	Option3    string    `gorm:"column:option_3"`
	Option4    string    `gorm:"column:option_4"`
	VoteCount1 int64     `gorm:"column:vote_count_1"`
	VoteCount2 int64     `gorm:"column:vote_count_2"`
	VoteCount3 int64     `gorm:"column:vote_count_3"`
	VoteCount4 int64     `gorm:"column:vote_count_4"`
	Active     bool      `gorm:"column:active"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

func pollModelFromEntity(poll entities.Poll) pollModel {
	row := pollModel{
		PollID:     strings.TrimSpace(poll.PollID),
		OwnerID:    strings.TrimSpace(poll.OwnerID),
		Question:   strings.TrimSpace(poll.Question),
		Option1:    strings.TrimSpace(poll.Options[0]),
		Option2:    strings.TrimSpace(poll.Options[1]),
		Option3:    strings.TrimSpace(poll.Options[2]),
		Option4:    strings.TrimSpace(poll.Options[3]),
		VoteCount1: poll.VoteCounts[0],
		VoteCount2: poll.VoteCounts[1],
		VoteCount3: poll.VoteCounts[2],
		VoteCount4: poll.VoteCounts[3],
		Active:     poll.Active,
		CreatedAt:  poll.CreatedAt.UTC(),
		UpdatedAt:  poll.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m pollModel) toEntity() entities.Poll {
	return entities.Poll{
		PollID:     m.PollID,
		OwnerID:    m.OwnerID,
		Question:   m.Question,
		Options:    [entities.MaxOptions]string{m.Option1, m.Option2, m.Option3, m.Option4},
		VoteCounts: [entities.MaxOptions]int64{m.VoteCount1, m.VoteCount2, m.VoteCount3, m.VoteCount4},
		Active:     m.Active,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type pollVoteModel struct {
	PollID         string    `gorm:"column:poll_id;primaryKey"`
	UserID         string    `gorm:"column:user_id;primaryKey"`
	SelectedOption int       `gorm:"column:selected_option"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	VotedAt        time.Time `gorm:"column:voted_at"`
}

func (pollVoteModel) TableName() string {
	return "poll_votes"
}

func pollVoteModelFromEntity(vote entities.Vote) pollVoteModel {
	row := pollVoteModel{
		PollID:         strings.TrimSpace(vote.PollID),
		UserID:         strings.TrimSpace(vote.UserID),
		SelectedOption: vote.SelectedOption,
		CreatedAt:      vote.CreatedAt.UTC(),
		VotedAt:        vote.VotedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.VotedAt.IsZero() {
		row.VotedAt = row.CreatedAt
	}
	return row
}

func (m pollVoteModel) toEntity() entities.Vote {
	return entities.Vote{
		PollID:         m.PollID,
		UserID:         m.UserID,
		SelectedOption: m.SelectedOption,
		CreatedAt:      m.CreatedAt.UTC(),
		VotedAt:        m.VotedAt.UTC(),
	}
}

// counterColumn is only called with options already checked against 1..4.
func counterColumn(option int) string {
	return fmt.Sprintf("vote_count_%d", option)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isRetryable matches serialization failures, deadlocks and lock timeouts.
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

var _ ports.VoteLedger = (*Repository)(nil)
var _ ports.PollRepository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
