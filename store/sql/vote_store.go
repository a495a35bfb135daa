package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-topgg/core"
	"github.com/goliatone/go-topgg/snowflake"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultPerPage = 25

// VoteRecord is a persisted vote delivery.
type VoteRecord struct {
	ID         string
	Vote       core.Vote
	ReceivedAt time.Time
}

// VoteFilter narrows List. Zero fields do not filter.
type VoteFilter struct {
	Target  snowflake.ID
	User    snowflake.ID
	Type    core.VoteType
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

type VotePage struct {
	Items   []VoteRecord
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type VoteStore struct {
	db   *bun.DB
	repo repository.Repository[*voteRecord]
	now  func() time.Time
}

func NewVoteStore(db *bun.DB) (*VoteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*voteRecord](db, voteHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid vote repository wiring: %w", err)
		}
	}
	return &VoteStore{db: db, repo: repo, now: time.Now}, nil
}

// NewVoteStoreFromClient accepts a *bun.DB or anything exposing DB() *bun.DB,
// such as a go-persistence-bun client.
func NewVoteStoreFromClient(client any) (*VoteStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewVoteStore(db)
}

func (s *VoteStore) Record(ctx context.Context, vote core.Vote) (VoteRecord, error) {
	if s == nil || s.repo == nil {
		return VoteRecord{}, fmt.Errorf("sqlstore: vote store is not configured")
	}
	if vote.User.IsZero() || vote.Target().IsZero() {
		return VoteRecord{}, core.BadInput("sqlstore: vote requires user and target", map[string]any{
			"user":   vote.User.String(),
			"target": vote.Target().String(),
		})
	}
	kind := targetKindBot
	if vote.IsGuild() {
		kind = targetKindGuild
	}
	record := &voteRecord{
		ID:         uuid.NewString(),
		TargetKind: kind,
		TargetID:   vote.Target(),
		UserID:     vote.User,
		VoteType:   strings.TrimSpace(string(vote.Type)),
		IsWeekend:  vote.IsWeekend,
		Query:      vote.Query,
		ReceivedAt: s.now().UTC(),
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return VoteRecord{}, err
	}
	return voteRecordToDomain(created), nil
}

func (s *VoteStore) List(ctx context.Context, filter VoteFilter) (VotePage, error) {
	if s == nil || s.repo == nil {
		return VotePage{}, fmt.Errorf("sqlstore: vote store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("received_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if !filter.Target.IsZero() {
		selectors = append(selectors, repository.SelectBy("target_id", "=", filter.Target.String()))
	}
	if !filter.User.IsZero() {
		selectors = append(selectors, repository.SelectBy("user_id", "=", filter.User.String()))
	}
	if voteType := strings.TrimSpace(string(filter.Type)); voteType != "" {
		selectors = append(selectors, repository.SelectBy("vote_type", "=", voteType))
	}
	if filter.From != nil {
		selectors = append(selectors, repository.SelectByTimetz("received_at", ">=", filter.From.UTC()))
	}
	if filter.To != nil {
		selectors = append(selectors, repository.SelectByTimetz("received_at", "<=", filter.To.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return VotePage{}, err
	}
	items := make([]VoteRecord, 0, len(records))
	for _, record := range records {
		items = append(items, voteRecordToDomain(record))
	}
	return VotePage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

// CountByUser counts votes cast by user since the given time. A zero since
// counts every stored vote.
func (s *VoteStore) CountByUser(ctx context.Context, user any, since time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: vote store is not configured")
	}
	voter, err := snowflake.Resolve(user)
	if err != nil {
		return 0, err
	}
	query := s.db.NewSelect().
		Model((*voteRecord)(nil)).
		Where("user_id = ?", voter.String())
	if !since.IsZero() {
		query = query.Where("received_at >= ?", since.UTC())
	}
	return query.Count(ctx)
}

// Prune deletes votes received before now minus ttl.
func (s *VoteStore) Prune(ctx context.Context, ttl time.Duration) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: vote store is not configured")
	}
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-ttl)
	res, err := s.db.NewDelete().
		Model((*voteRecord)(nil)).
		Where("received_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func voteRecordToDomain(record *voteRecord) VoteRecord {
	if record == nil {
		return VoteRecord{}
	}
	vote := core.Vote{
		User:      record.UserID,
		Type:      core.VoteType(record.VoteType),
		IsWeekend: record.IsWeekend,
		Query:     record.Query,
	}
	if record.TargetKind == targetKindGuild {
		vote.Guild = record.TargetID
	} else {
		vote.Bot = record.TargetID
	}
	return VoteRecord{
		ID:         record.ID,
		Vote:       vote,
		ReceivedAt: record.ReceivedAt.UTC(),
	}
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
