package public

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/newthinker/premia/internal/core"
)

const tokenPath = "/userapiauthservice/personal/access-tokens"

// secretTokenSource exchanges a long-lived personal secret for a short-lived
// bearer token. It is wrapped in oauth2.ReuseTokenSource, which calls Token
// only when the cached token has expired.
type secretTokenSource struct {
	ctx      context.Context
	client   *http.Client
	url      string
	secret   string
	validity time.Duration
	now      func() time.Time
}

type tokenRequest struct {
	ValidityInMinutes int    `json:"validityInMinutes"`
	Secret            string `json:"secret"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (s *secretTokenSource) Token() (*oauth2.Token, error) {
	body, err := json.Marshal(tokenRequest{
		ValidityInMinutes: int(s.validity / time.Minute),
		Secret:            s.secret,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	issued := s.now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("token exchange: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, core.WrapError(core.ErrProviderUnavailable,
			fmt.Errorf("token exchange: status %d: %s", resp.StatusCode, msg))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("decoding token: %w", err))
	}
	if tr.AccessToken == "" {
		return nil, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("token exchange returned no access token"))
	}

	return &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   "Bearer",
		Expiry:      issued.Add(s.validity),
	}, nil
}

// newAuthClient returns an http.Client that attaches a bearer token to every
// request, refreshing it from the secret when it expires.
func newAuthClient(ctx context.Context, base *http.Client, baseURL, secret string, validity time.Duration, now func() time.Time) *http.Client {
	src := &secretTokenSource{
		ctx:      ctx,
		client:   base,
		url:      baseURL + tokenPath,
		secret:   secret,
		validity: validity,
		now:      now,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, src))
	client.Timeout = base.Timeout
	return client
}
