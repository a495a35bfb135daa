package webhook

import (
	"encoding/json"

	"github.com/goliatone/go-topgg/core"
	"github.com/goliatone/go-topgg/snowflake"
)

type votePayload struct {
	Bot       *snowflake.ID `json:"bot"`
	Guild     *snowflake.ID `json:"guild"`
	User      *snowflake.ID `json:"user"`
	Type      *string       `json:"type"`
	IsWeekend *bool         `json:"isWeekend"`
	Query     *string       `json:"query"`
}

// DecodeVote parses a webhook body. Unknown fields are ignored. The vote is
// returned only when every required field is present and well formed. Ids
// must be JSON strings and the type is delivered exactly as sent.
func DecodeVote(body []byte) (core.Vote, error) {
	var payload votePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return core.Vote{}, core.MalformedPayload(err, map[string]any{"stage": "json"})
	}

	missing := make([]string, 0, 3)
	if payload.Bot == nil && payload.Guild == nil {
		missing = append(missing, "bot|guild")
	}
	if payload.User == nil {
		missing = append(missing, "user")
	}
	if payload.Type == nil || *payload.Type == "" {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return core.Vote{}, core.MalformedPayload(nil, map[string]any{
			"stage":   "fields",
			"missing": missing,
		})
	}

	vote := core.Vote{
		User: *payload.User,
		Type: core.VoteType(*payload.Type),
	}
	if payload.Bot != nil {
		vote.Bot = *payload.Bot
	} else {
		vote.Guild = *payload.Guild
	}
	if payload.IsWeekend != nil {
		vote.IsWeekend = *payload.IsWeekend
	}
	if payload.Query != nil {
		vote.Query = *payload.Query
	}
	return vote, nil
}
