package sqlstore

import (
	"time"

	"github.com/goliatone/go-topgg/snowflake"
	"github.com/uptrace/bun"
)

const (
	targetKindBot   = "bot"
	targetKindGuild = "guild"
)

type voteRecord struct {
	bun.BaseModel `bun:"table:topgg_votes,alias:tv"`

	ID         string       `bun:"id,pk"`
	TargetKind string       `bun:"target_kind,notnull"`
	TargetID   snowflake.ID `bun:"target_id,notnull"`
	UserID     snowflake.ID `bun:"user_id,notnull"`
	VoteType   string       `bun:"vote_type,notnull"`
	IsWeekend  bool         `bun:"is_weekend,notnull"`
	Query      string       `bun:"query,notnull"`
	ReceivedAt time.Time    `bun:"received_at,nullzero,notnull,default:current_timestamp"`
}
