package topgg

import (
	"github.com/goliatone/go-topgg/client"
	"github.com/goliatone/go-topgg/core"
	"github.com/goliatone/go-topgg/snowflake"
	"github.com/goliatone/go-topgg/webhook"
)

type ID = snowflake.ID
type IDList = snowflake.List
type Snowflake = snowflake.Like

type Vote = core.Vote
type VoteType = core.VoteType
type VoteHandler = core.VoteHandler
type VoteHandlerFunc = core.VoteHandlerFunc

type User = core.User
type Bot = core.Bot
type Voter = core.Voter

type Config = core.Config
type WebhookConfig = core.WebhookConfig
type APIConfig = core.APIConfig

type Webhook = webhook.Router
type WebhookOption = webhook.Option
type Client = client.Client
type ClientOption = client.Option

const (
	VoteTypeUpvote = core.VoteTypeUpvote
	VoteTypeTest   = core.VoteTypeTest
)

var (
	ParseID   = snowflake.Parse
	ResolveID = snowflake.Resolve
	ParseIDs  = snowflake.ParseList

	DefaultConfig  = core.DefaultConfig
	LoadConfig     = core.LoadConfig
	WithConfigFile = core.WithConfigFile

	IsMalformedPayload  = core.IsMalformedPayload
	IsUnauthorized      = core.IsUnauthorized
	IsInvalidIdentifier = core.IsInvalidIdentifier
	IsNotFound          = core.IsNotFound
)

// NewWebhook returns an http.Handler that authenticates vote deliveries with
// password and hands each decoded vote to handler.
func NewWebhook(password string, handler VoteHandler, options ...WebhookOption) (*Webhook, error) {
	return webhook.New(password, handler, options...)
}

// NewClient returns an API client authenticated with token.
func NewClient(token string, options ...ClientOption) (*Client, error) {
	return client.New(token, options...)
}

func NewClientFromConfig(cfg APIConfig, options ...ClientOption) (*Client, error) {
	return client.NewFromConfig(cfg, options...)
}
