// Package github implementa el provider OAuth 2.0 de GitHub. A diferencia de
// Google no hay id_token: la identidad sale de la API de usuario, y el email
// puede requerir una llamada extra porque muchos perfiles lo tienen privado.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/authcore/internal/social"
)

const (
	authEndpoint  = "https://github.com/login/oauth/authorize"
	tokenEndpoint = "https://github.com/login/oauth/access_token"
	userEndpoint  = "https://api.github.com/user"
	emailEndpoint = "https://api.github.com/user/emails"
)

// Provider es el cliente OAuth de GitHub.
type Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	http *http.Client
}

func New(clientID, clientSecret, redirectURL string) *Provider {
	return &Provider{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"user:email", "read:user"},
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Provider) Name() string { return "github" }

// AuthURL construye la URL de autorización. GitHub no soporta nonce: viaja
// embebido en el state.
func (g *Provider) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("scope", strings.Join(g.Scopes, " "))
	q.Set("state", state)
	q.Set("allow_signup", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchIdentity canjea el code y arma la identidad desde la API de usuario.
func (g *Provider) FetchIdentity(ctx context.Context, code, _ string) (*social.Identity, error) {
	token, err := g.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	info, err := g.userInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	email := info.Email
	verified := false
	if em, err := g.primaryEmail(ctx, token); err == nil {
		email = em.Email
		verified = em.Verified
	} else if email == "" {
		return nil, fmt.Errorf("github identity without email: %w", err)
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	return &social.Identity{
		Provider:       g.Name(),
		ProviderUserID: strconv.FormatInt(info.ID, 10),
		Email:          email,
		EmailVerified:  verified,
		DisplayName:    name,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

func (g *Provider) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", g.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, "POST", tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.Error != "" {
		return "", fmt.Errorf("github oauth error: %s - %s", tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("no access_token in response")
	}
	return tr.AccessToken, nil
}

type userInfo struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (g *Provider) userInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	var info userInfo
	if err := g.apiGet(ctx, userEndpoint, accessToken, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// primaryEmail prefiere primary+verified, después cualquier verificado,
// después lo que haya.
func (g *Provider) primaryEmail(ctx context.Context, accessToken string) (*emailInfo, error) {
	var emails []emailInfo
	if err := g.apiGet(ctx, emailEndpoint, accessToken, &emails); err != nil {
		return nil, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return &e, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return &e, nil
		}
	}
	if len(emails) > 0 {
		return &emails[0], nil
	}
	return nil, fmt.Errorf("no email found")
}

func (g *Provider) apiGet(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api error: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
