package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	"cinetrack/contexts/community-engagement/poll-voting/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	seq       int64
	message   ports.OutboxMessage
	published bool
}

// Store keeps polls, the vote ledger and the outbox in process. Vote scopes
// hold the write lock for their whole duration, so scopes are serialized
// store-wide rather than per (poll, user).
type Store struct {
	mu sync.RWMutex

	polls     map[string]entities.Poll
	votes     map[string]entities.Vote
	outbox    map[string]outboxRecord
	outboxSeq int64
}

func NewStore(seed []entities.Poll) *Store {
	polls := make(map[string]entities.Poll, len(seed))
	for _, poll := range seed {
		polls[strings.TrimSpace(poll.PollID)] = poll
	}
	return &Store{
		polls:  polls,
		votes:  make(map[string]entities.Vote),
		outbox: make(map[string]outboxRecord),
	}
}

func voteKey(pollID string, userID string) string {
	return strings.TrimSpace(pollID) + "|" + strings.TrimSpace(userID)
}

// WithinVoteScope runs fn against staged copies and publishes them only when
// fn succeeds and ctx is still live.
func (s *Store) WithinVoteScope(
	ctx context.Context,
	_ string,
	_ string,
	fn func(tx ports.VoteTx) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &voteTx{
		store: s,
		polls: make(map[string]entities.Poll),
		votes: make(map[string]entities.Vote),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	staged, err := s.stageOutboxLocked(tx.outbox)
	if err != nil {
		return err
	}

	for key, poll := range tx.polls {
		s.polls[key] = poll
	}
	for key, vote := range tx.votes {
		s.votes[key] = vote
	}
	s.commitOutboxLocked(staged)
	return nil
}

type voteTx struct {
	store  *Store
	polls  map[string]entities.Poll
	votes  map[string]entities.Vote
	outbox []ports.EventEnvelope
}

func (tx *voteTx) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	pollID = strings.TrimSpace(pollID)
	if poll, ok := tx.polls[pollID]; ok {
		return poll, nil
	}
	poll, ok := tx.store.polls[pollID]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (tx *voteTx) LockVote(_ context.Context, pollID string, userID string) (entities.Vote, bool, error) {
	key := voteKey(pollID, userID)
	if vote, ok := tx.votes[key]; ok {
		return vote, true, nil
	}
	vote, ok := tx.store.votes[key]
	return vote, ok, nil
}

func (tx *voteTx) InsertVote(ctx context.Context, vote entities.Vote) (bool, error) {
	if _, found, _ := tx.LockVote(ctx, vote.PollID, vote.UserID); found {
		return false, nil
	}
	tx.votes[voteKey(vote.PollID, vote.UserID)] = vote
	return true, nil
}

func (tx *voteTx) UpdateVote(ctx context.Context, vote entities.Vote) error {
	if _, found, _ := tx.LockVote(ctx, vote.PollID, vote.UserID); !found {
		return domainerrors.ErrVoteNotFound
	}
	tx.votes[voteKey(vote.PollID, vote.UserID)] = vote
	return nil
}

func (tx *voteTx) ShiftCounters(ctx context.Context, pollID string, from int, to int) error {
	if from < 0 || from > entities.MaxOptions || to < 1 || to > entities.MaxOptions {
		return domainerrors.ErrInvalidOption
	}
	poll, err := tx.GetPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if from > 0 && poll.VoteCounts[from-1] > 0 {
		poll.VoteCounts[from-1]--
	}
	poll.VoteCounts[to-1]++
	tx.polls[strings.TrimSpace(pollID)] = poll
	return nil
}

func (tx *voteTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	tx.outbox = append(tx.outbox, envelope)
	return nil
}

func (s *Store) CreatePoll(_ context.Context, poll entities.Poll, events ...ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pollID := strings.TrimSpace(poll.PollID)
	if _, exists := s.polls[pollID]; exists {
		return domainerrors.ErrConflict
	}
	staged, err := s.stageOutboxLocked(events)
	if err != nil {
		return err
	}
	s.polls[pollID] = poll
	s.commitOutboxLocked(staged)
	return nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (s *Store) ListPolls(_ context.Context, activeOnly bool) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Poll, 0, len(s.polls))
	for _, poll := range s.polls {
		if activeOnly && !poll.Active {
			continue
		}
		items = append(items, poll)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].PollID < items[j].PollID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) SetPollActive(
	_ context.Context,
	pollID string,
	active bool,
	updatedAt time.Time,
	events ...ports.EventEnvelope,
) (entities.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pollID = strings.TrimSpace(pollID)
	poll, ok := s.polls[pollID]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	staged, err := s.stageOutboxLocked(events)
	if err != nil {
		return entities.Poll{}, err
	}
	poll.Active = active
	poll.UpdatedAt = updatedAt.UTC()
	s.polls[pollID] = poll
	s.commitOutboxLocked(staged)
	return poll, nil
}

func (s *Store) DeletePoll(_ context.Context, pollID string, events ...ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pollID = strings.TrimSpace(pollID)
	if _, ok := s.polls[pollID]; !ok {
		return domainerrors.ErrPollNotFound
	}
	staged, err := s.stageOutboxLocked(events)
	if err != nil {
		return err
	}
	delete(s.polls, pollID)
	for key, vote := range s.votes {
		if vote.PollID == pollID {
			delete(s.votes, key)
		}
	}
	s.commitOutboxLocked(staged)
	return nil
}

func (s *Store) GetVote(_ context.Context, pollID string, userID string) (entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[voteKey(pollID, userID)]
	if !ok {
		return entities.Vote{}, domainerrors.ErrVoteNotFound
	}
	return vote, nil
}

func (s *Store) CountVotesByOption(_ context.Context, pollID string) (map[int]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int]int64)
	pollID = strings.TrimSpace(pollID)
	for _, vote := range s.votes {
		if vote.PollID == pollID {
			counts[vote.SelectedOption]++
		}
	}
	return counts, nil
}

// ListVotes returns the ledger rows of one poll ordered by user.
func (s *Store) ListVotes(pollID string) []entities.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.PollID == strings.TrimSpace(pollID) {
			items = append(items, vote)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UserID < items[j].UserID
	})
	return items
}

// stageOutboxLocked turns events into outbox rows. It fails on an ID that
// is already stored or repeated in the batch, so callers stage before they
// write polls or votes.
func (s *Store) stageOutboxLocked(events []ports.EventEnvelope) ([]ports.OutboxMessage, error) {
	staged := make([]ports.OutboxMessage, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return nil, err
		}
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		_, stored := s.outbox[outboxID]
		_, repeated := seen[outboxID]
		if stored || repeated {
			return nil, domainerrors.ErrConflict
		}
		seen[outboxID] = struct{}{}
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		staged = append(staged, ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		})
	}
	return staged, nil
}

func (s *Store) commitOutboxLocked(staged []ports.OutboxMessage) {
	for _, message := range staged {
		s.outboxSeq++
		s.outbox[message.OutboxID] = outboxRecord{seq: s.outboxSeq, message: message}
	}
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
