// Package auth exchanges administrator or service-user credentials for
// bearer tokens at the deployed identity provider.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/terabiome/stackbuilder/internal/session"
	"github.com/terabiome/stackbuilder/pkg/constants"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
)

type Credentials struct {
	Username string
	Password string
}

// Overrides replace the configured values of a single API token request.
// Empty fields are ignored.
type Overrides struct {
	ClientSecret string
	Username     string
	Password     string
}

type Config struct {
	AdminTokenURL   string
	ServiceTokenURL string
	// ClientID of the service realm client.
	ClientID    string
	Admin       Credentials
	DefaultUser Credentials
}

type Broker struct {
	cfg     Config
	session *session.State
	client  *http.Client
	logger  *slog.Logger
}

// NewBroker returns a broker reading the client secret from state. Tokens are
// never cached.
func NewBroker(cfg Config, state *session.State, client *http.Client, logger *slog.Logger) *Broker {
	if cfg.ClientID == "" {
		cfg.ClientID = constants.DefaultCatalogueClientID
	}
	return &Broker{
		cfg:     cfg,
		session: state,
		client:  client,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// AdminToken performs a password grant for the configured administrator on
// the admin realm with the admin-cli client.
func (b *Broker) AdminToken(ctx context.Context) (string, error) {
	conf := &oauth2.Config{
		ClientID: constants.AdminClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  b.cfg.AdminTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return b.passwordGrant(ctx, constants.RealmAdmin, conf, b.cfg.Admin)
}

// APIToken performs a password grant on the service realm. Override values
// take precedence over the session secret and the configured service user.
func (b *Broker) APIToken(ctx context.Context, o Overrides) (string, error) {
	secret := o.ClientSecret
	if secret == "" {
		var ok bool
		if secret, ok = b.session.Get(); !ok {
			return "", ErrMissingSecret
		}
	}

	conf := &oauth2.Config{
		ClientID:     b.cfg.ClientID,
		ClientSecret: secret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  b.cfg.ServiceTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	creds := Credentials{
		Username: firstNonEmpty(o.Username, b.cfg.DefaultUser.Username),
		Password: firstNonEmpty(o.Password, b.cfg.DefaultUser.Password),
	}

	return b.passwordGrant(ctx, constants.RealmService, conf, creds)
}

func (b *Broker) passwordGrant(ctx context.Context, realm string, conf *oauth2.Config, creds Credentials) (string, error) {
	tracer := otel.Tracer("stackbuilder/auth")
	ctx, span := tracer.Start(ctx, "PasswordGrant")
	defer span.End()

	span.SetAttributes(
		attribute.String("auth.realm", realm),
		attribute.String("auth.client_id", conf.ClientID),
	)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)

	token, err := conf.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		authErr := &AuthError{Realm: realm, Err: err}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			authErr.Description = retrieveErr.ErrorDescription
			authErr.Body = string(retrieveErr.Body)
			if retrieveErr.Response != nil {
				authErr.StatusCode = retrieveErr.Response.StatusCode
			}
		}

		span.RecordError(authErr)
		span.SetStatus(codes.Error, "token request failed")
		b.logger.Warn("token request failed",
			slog.String("realm", realm),
			slog.Int("status", authErr.StatusCode),
			slog.String("error", authErr.Error()),
		)
		return "", authErr
	}

	b.logger.Debug("token issued", slog.String("realm", realm), slog.String("client_id", conf.ClientID))
	return token.AccessToken, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
