// Package coze wires configuration, credentials and the HTTP pipeline into ready to use
// Coze API services.
package coze

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/router-for-me/CozeSDK/internal/config"
	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/internal/util"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/auth"
	"github.com/router-for-me/CozeSDK/sdk/coze/chat"
	"github.com/router-for-me/CozeSDK/sdk/coze/client"
	"github.com/router-for-me/CozeSDK/sdk/coze/conversation"
	"github.com/router-for-me/CozeSDK/sdk/coze/workflow"
	log "github.com/sirupsen/logrus"
)

// Client groups the Coze services sharing one request pipeline and token source.
type Client struct {
	API           *client.Client
	Tokens        client.TokenProvider
	Chat          *chat.Service
	Workflows     *workflow.Service
	Conversations *conversation.Service
}

type options struct {
	httpClient   *http.Client
	tokenService auth.TokenService
	signer       auth.Signer
	chatOptions  []chat.Option
}

// Option customises New.
type Option func(*options)

// WithHTTPClient replaces the proxy aware client built from the configuration.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTokenService issues tokens through svc instead of the configured credentials.
// Tokens are cached by an auth.TokenManager.
func WithTokenService(svc auth.TokenService) Option {
	return func(o *options) { o.tokenService = svc }
}

// WithSigner replaces the RS256 signer used for JWT credentials.
func WithSigner(s auth.Signer) Option {
	return func(o *options) { o.signer = s }
}

// WithChatOptions passes extra options to the chat service.
func WithChatOptions(opts ...chat.Option) Option {
	return func(o *options) { o.chatOptions = append(o.chatOptions, opts...) }
}

// New builds a Client from cfg. A nil cfg means defaults plus COZE_* environment values.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		loaded, err := config.LoadConfig("")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg.Sanitize()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		hc, err := transport.NewHTTPClient(cfg.ProxyURL, cfg.RequestTimeout())
		if err != nil {
			return nil, err
		}
		httpClient = hc
	}

	tokens, err := tokenProvider(cfg, o, httpClient)
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.BaseURL,
		client.WithHTTPClient(httpClient),
		client.WithTokenProvider(tokens),
		client.WithHeaders(cfg.Headers),
		client.WithMaxEvents(cfg.Streaming.MaxEvents),
	)
	chatOpts := append([]chat.Option{
		chat.WithPollInterval(cfg.Chat.PollInterval()),
		chat.WithPollTimeout(cfg.Chat.PollTimeout()),
	}, o.chatOptions...)

	log.Debugf("coze: client ready for %s", cfg.BaseURL)
	return &Client{
		API:           api,
		Tokens:        tokens,
		Chat:          chat.NewService(api, chatOpts...),
		Workflows:     workflow.NewService(api),
		Conversations: conversation.NewService(api),
	}, nil
}

func tokenProvider(cfg *config.Config, o *options, httpClient *http.Client) (client.TokenProvider, error) {
	if o.tokenService != nil {
		return auth.NewTokenManager(o.tokenService)
	}
	if cfg.Auth.Token != "" {
		return auth.StaticToken(cfg.Auth.Token), nil
	}
	jwt := cfg.Auth.JWT
	if !jwt.Enabled() {
		return nil, apierr.Validation("no credentials configured: set auth.token or the auth.jwt settings")
	}
	key := []byte(jwt.PrivateKey)
	if len(key) == 0 {
		path, err := util.ResolvePath(jwt.PrivateKeyFile)
		if err != nil {
			return nil, err
		}
		key, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("coze: read jwt private key: %w", err)
		}
	}
	audience := jwt.Audience
	if audience == "" {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			audience = u.Host
		}
	}
	svc := &auth.JWTService{
		ClientID:   jwt.ClientID,
		KeyID:      jwt.KeyID,
		PrivateKey: key,
		Audience:   strings.TrimSpace(audience),
		BaseURL:    cfg.BaseURL,
		TTL:        time.Duration(jwt.TTLSeconds) * time.Second,
		HTTPClient: httpClient,
		Signer:     o.signer,
	}
	return auth.NewTokenManager(svc)
}
