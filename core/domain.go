package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-topgg/snowflake"
)

type VoteType string

const (
	VoteTypeUpvote VoteType = "upvote"
	VoteTypeTest   VoteType = "test"
)

// Vote is a single webhook delivery. Exactly one of Bot or Guild is set.
type Vote struct {
	Bot       snowflake.ID `json:"bot,omitempty"`
	Guild     snowflake.ID `json:"guild,omitempty"`
	User      snowflake.ID `json:"user"`
	Type      VoteType     `json:"type"`
	IsWeekend bool         `json:"isWeekend,omitempty"`
	Query     string       `json:"query,omitempty"`
}

// Target returns the id that received the vote.
func (v Vote) Target() snowflake.ID {
	if v.Bot != 0 {
		return v.Bot
	}
	return v.Guild
}

func (v Vote) IsGuild() bool {
	return v.Bot == 0 && v.Guild != 0
}

func (v Vote) IsTest() bool {
	return v.Type == VoteTypeTest
}

// QueryValues parses the query string forwarded from the vote page.
// Malformed pairs are dropped.
func (v Vote) QueryValues() url.Values {
	raw := strings.TrimPrefix(strings.TrimSpace(v.Query), "?")
	if raw == "" {
		return url.Values{}
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return url.Values{}
	}
	return values
}

type Socials struct {
	GitHub    string `json:"github,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Reddit    string `json:"reddit,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
}

type User struct {
	ID            snowflake.ID `json:"id"`
	Username      string       `json:"username"`
	Discriminator string       `json:"discriminator,omitempty"` // deprecated upstream
	Bio           string       `json:"bio,omitempty"`
	Banner        string       `json:"banner,omitempty"`
	Socials       *Socials     `json:"social,omitempty"`
	Supporter     bool         `json:"supporter"`
	CertifiedDev  bool         `json:"certifiedDev"`
	Moderator     bool         `json:"mod"`
	WebModerator  bool         `json:"webMod"`
	Admin         bool         `json:"admin"`
	Avatar        string       `json:"avatar,omitempty"`
}

func (u User) Snowflake() snowflake.ID {
	return u.ID
}

func (u User) AvatarURL() string {
	return AvatarURL(u.ID, u.Avatar)
}

type Voter struct {
	ID       snowflake.ID `json:"id"`
	Username string       `json:"username"`
	Avatar   string       `json:"avatar,omitempty"`
}

func (v Voter) Snowflake() snowflake.ID {
	return v.ID
}

func (v Voter) AvatarURL() string {
	return AvatarURL(v.ID, v.Avatar)
}

type Bot struct {
	ID               snowflake.ID   `json:"id"`
	Username         string         `json:"username"`
	Discriminator    string         `json:"discriminator,omitempty"`
	Avatar           string         `json:"avatar,omitempty"`
	Prefix           string         `json:"prefix"`
	ShortDescription string         `json:"shortdesc"`
	LongDescription  string         `json:"longdesc,omitempty"`
	Tags             []string       `json:"tags"`
	Website          string         `json:"website,omitempty"`
	Support          string         `json:"support,omitempty"`
	GitHub           string         `json:"github,omitempty"`
	Owners           snowflake.List `json:"owners"`
	Guilds           snowflake.List `json:"guilds"`
	Invite           string         `json:"invite,omitempty"`
	Date             time.Time      `json:"date"`
	Certified        bool           `json:"certifiedBot"`
	Vanity           string         `json:"vanity,omitempty"`
	Points           uint64         `json:"points"`
	MonthlyPoints    uint64         `json:"monthlyPoints"`
	ServerCount      uint64         `json:"server_count,omitempty"`
	ShardCount       uint64         `json:"shard_count,omitempty"`
}

func (b Bot) Snowflake() snowflake.ID {
	return b.ID
}

func (b Bot) AvatarURL() string {
	return AvatarURL(b.ID, b.Avatar)
}

const cdnBaseURL = "https://cdn.discordapp.com"

// AvatarURL returns the CDN url for a custom avatar hash, or the default
// avatar derived from the id when no hash is set. Animated hashes use gif.
func AvatarURL(id snowflake.ID, hash string) string {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return fmt.Sprintf("%s/embed/avatars/%d.png", cdnBaseURL, (uint64(id)>>22)%6)
	}
	ext := "png"
	if strings.HasPrefix(hash, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("%s/avatars/%s/%s.%s?size=1024", cdnBaseURL, id, hash, ext)
}

var (
	_ snowflake.Like = User{}
	_ snowflake.Like = Voter{}
	_ snowflake.Like = Bot{}
)
