// Package kanidmclient is a minimal HTTP client for the Kanidm identity
// management API: authentication, and CRUD against persons, service
// accounts, groups and OAuth2 resource servers. There is no Kanidm Go SDK
// to build on, so this talks net/http and encoding/json directly, the way
// availability-prober talks to its target endpoint.
package kanidmclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kaniop/kaniop/internal/kerrors"
	"github.com/kaniop/kaniop/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is the Kanidm instance's API root, e.g. https://idm.example.com.
	BaseURL string

	// InsecureSkipVerify disables TLS verification; used only against
	// pods presenting a self-signed certificate before the operator's
	// own CA bundle has propagated.
	InsecureSkipVerify bool

	// Timeout bounds every request. Defaults to 30s.
	Timeout time.Duration
}

// Client is an authenticated handle to one Kanidm instance's API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New builds a Client that is not yet authenticated; call Login before
// issuing any other request.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, //nolint:gosec
			},
		},
	}
}

// WithToken returns a copy of Client authenticated with an already-known
// bearer token, skipping the login exchange (used by internal/clientpool
// when a cached token is still valid).
func (c *Client) WithToken(token string) *Client {
	return &Client{baseURL: c.baseURL, http: c.http, token: token}
}

// Token returns the client's current bearer token, or "" if unauthenticated.
func (c *Client) Token() string {
	return c.token
}

type loginRequest struct {
	Step loginStep `json:"step"`
}

type loginStep struct {
	Init     string          `json:"init,omitempty"`
	Begin    string          `json:"begin,omitempty"`
	Cred     *loginCredStep  `json:"cred,omitempty"`
}

type loginCredStep struct {
	Password string `json:"password"`
}

type loginResponse struct {
	State loginState `json:"state"`
}

type loginState struct {
	Success string `json:"success"`
}

// Login exchanges a username/password for a bearer token using Kanidm's
// multi-step auth flow, collapsed here into a single password-only
// exchange (the operator never drives interactive/MFA flows).
func (c *Client) Login(ctx context.Context, username, password string) error {
	initBody := loginRequest{Step: loginStep{Init: username}}
	if _, err := c.do(ctx, "auth-init", http.MethodPost, "/v1/auth", initBody, nil); err != nil {
		return err
	}

	beginBody := loginRequest{Step: loginStep{Begin: "password"}}
	if _, err := c.do(ctx, "auth-begin", http.MethodPost, "/v1/auth", beginBody, nil); err != nil {
		return err
	}

	credBody := loginRequest{Step: loginStep{Cred: &loginCredStep{Password: password}}}
	var resp loginResponse
	if _, err := c.do(ctx, "auth-cred", http.MethodPost, "/v1/auth", credBody, &resp); err != nil {
		return err
	}
	if resp.State.Success == "" {
		return kerrors.NewKanidmClientError("auth-cred", 0, fmt.Errorf("authentication did not succeed"))
	}
	c.token = resp.State.Success
	return nil
}

// Entity is the generic shape of a Kanidm account/group entry as
// exchanged over the API: a set of named, multi-valued attributes.
type Entity struct {
	Attrs map[string][]string `json:"attrs"`
}

// GetEntity fetches the entry named id under the given endpoint prefix
// (e.g. "person", "service_account", "group", "oauth2").
func (c *Client) GetEntity(ctx context.Context, kind, id string) (*Entity, error) {
	var entity Entity
	_, err := c.do(ctx, "get-"+kind, http.MethodGet, fmt.Sprintf("/v1/%s/%s", kind, id), nil, &entity)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// CreateEntity creates a new entry of the given kind.
func (c *Client) CreateEntity(ctx context.Context, kind string, entity Entity) error {
	_, err := c.do(ctx, "create-"+kind, http.MethodPost, fmt.Sprintf("/v1/%s", kind), entity, nil)
	return err
}

// PatchEntity applies a partial attribute update to an existing entry.
func (c *Client) PatchEntity(ctx context.Context, kind, id string, attrs map[string][]string) error {
	_, err := c.do(ctx, "patch-"+kind, http.MethodPatch, fmt.Sprintf("/v1/%s/%s", kind, id), Entity{Attrs: attrs}, nil)
	return err
}

// DeleteEntity removes an entry.
func (c *Client) DeleteEntity(ctx context.Context, kind, id string) error {
	_, err := c.do(ctx, "delete-"+kind, http.MethodDelete, fmt.Sprintf("/v1/%s/%s", kind, id), nil, nil)
	return err
}

// SetGroupMembers overwrites a group's member list with exactly members.
func (c *Client) SetGroupMembers(ctx context.Context, groupID string, members []string) error {
	_, err := c.do(ctx, "set-group-members", http.MethodPut, fmt.Sprintf("/v1/group/%s/_attr/member", groupID), members, nil)
	return err
}

// SetAttr overwrites a single multi-valued attribute on an entry.
func (c *Client) SetAttr(ctx context.Context, kind, id, attr string, values []string) error {
	_, err := c.do(ctx, "set-"+kind+"-"+attr, http.MethodPut, fmt.Sprintf("/v1/%s/%s/_attr/%s", kind, id, attr), values, nil)
	return err
}

// PurgeAttr removes every value of a single attribute from an entry, the
// way a reconciler clears an optional field (e.g. mail) rather than
// setting it to an empty list.
func (c *Client) PurgeAttr(ctx context.Context, kind, id, attr string) error {
	_, err := c.do(ctx, "purge-"+kind+"-"+attr, http.MethodDelete, fmt.Sprintf("/v1/%s/%s/_attr/%s", kind, id, attr), nil, nil)
	return err
}

// IssueAPIToken creates a new API token for a service account and returns
// the raw token string; the caller is responsible for storing it (it is
// never retrievable again).
func (c *Client) IssueAPIToken(ctx context.Context, serviceAccountID, label, purpose string, expiryUnix int64) (tokenID, rawToken string, err error) {
	req := map[string]any{
		"label":   label,
		"purpose": purpose,
	}
	if expiryUnix != 0 {
		req["expiry"] = expiryUnix
	}
	var resp struct {
		TokenID string `json:"token_id"`
		Token   string `json:"token"`
	}
	if _, err := c.do(ctx, "issue-api-token", http.MethodPost, fmt.Sprintf("/v1/service_account/%s/_api_token", serviceAccountID), req, &resp); err != nil {
		return "", "", err
	}
	return resp.TokenID, resp.Token, nil
}

// RevokeAPIToken destroys a previously issued API token by its server-assigned id.
func (c *Client) RevokeAPIToken(ctx context.Context, serviceAccountID, tokenID string) error {
	_, err := c.do(ctx, "revoke-api-token", http.MethodDelete, fmt.Sprintf("/v1/service_account/%s/_api_token/%s", serviceAccountID, tokenID), nil, nil)
	return err
}

// CreateOAuth2Client creates a new OAuth2 resource server, public (PKCE,
// no secret) or confidential (basic secret) depending on public.
func (c *Client) CreateOAuth2Client(ctx context.Context, id, displayName, origin string, public bool) error {
	req := map[string]any{"name": id, "displayname": displayName, "origin": origin, "public": public}
	_, err := c.do(ctx, "create-oauth2-rs", http.MethodPost, "/v1/oauth2", req, nil)
	return err
}

// AddOAuth2Origin adds a redirect URL beyond an OAuth2 client's primary origin.
func (c *Client) AddOAuth2Origin(ctx context.Context, id, url string) error {
	_, err := c.do(ctx, "add-oauth2-origin", http.MethodPost, fmt.Sprintf("/v1/oauth2/%s/_origin", id), map[string]string{"url": url}, nil)
	return err
}

// RemoveOAuth2Origin removes a previously added redirect URL.
func (c *Client) RemoveOAuth2Origin(ctx context.Context, id, url string) error {
	_, err := c.do(ctx, "remove-oauth2-origin", http.MethodDelete, fmt.Sprintf("/v1/oauth2/%s/_origin", id), map[string]string{"url": url}, nil)
	return err
}

// UpdateOAuth2ScopeMap grants group the given scopes on an OAuth2 client.
func (c *Client) UpdateOAuth2ScopeMap(ctx context.Context, id, group string, scopes []string) error {
	_, err := c.do(ctx, "update-oauth2-scopemap", http.MethodPut, fmt.Sprintf("/v1/oauth2/%s/_scopemap/%s", id, group), scopes, nil)
	return err
}

// DeleteOAuth2ScopeMap revokes group's scope grant on an OAuth2 client.
func (c *Client) DeleteOAuth2ScopeMap(ctx context.Context, id, group string) error {
	_, err := c.do(ctx, "delete-oauth2-scopemap", http.MethodDelete, fmt.Sprintf("/v1/oauth2/%s/_scopemap/%s", id, group), nil, nil)
	return err
}

// UpdateOAuth2SupScopeMap grants group the given supplementary scopes.
func (c *Client) UpdateOAuth2SupScopeMap(ctx context.Context, id, group string, scopes []string) error {
	_, err := c.do(ctx, "update-oauth2-sup-scopemap", http.MethodPut, fmt.Sprintf("/v1/oauth2/%s/_sup_scopemap/%s", id, group), scopes, nil)
	return err
}

// DeleteOAuth2SupScopeMap revokes group's supplementary scope grant.
func (c *Client) DeleteOAuth2SupScopeMap(ctx context.Context, id, group string) error {
	_, err := c.do(ctx, "delete-oauth2-sup-scopemap", http.MethodDelete, fmt.Sprintf("/v1/oauth2/%s/_sup_scopemap/%s", id, group), nil, nil)
	return err
}

// UpdateOAuth2ClaimMap sets the claim values granted to group for claimName.
func (c *Client) UpdateOAuth2ClaimMap(ctx context.Context, id, claimName, group string, values []string) error {
	_, err := c.do(ctx, "update-oauth2-claimmap", http.MethodPut, fmt.Sprintf("/v1/oauth2/%s/_claimmap/%s/%s", id, claimName, group), values, nil)
	return err
}

// DeleteOAuth2ClaimMap removes group's claim grant for claimName.
func (c *Client) DeleteOAuth2ClaimMap(ctx context.Context, id, claimName, group string) error {
	_, err := c.do(ctx, "delete-oauth2-claimmap", http.MethodDelete, fmt.Sprintf("/v1/oauth2/%s/_claimmap/%s/%s", id, claimName, group), nil, nil)
	return err
}

// UpdateOAuth2ClaimMapJoin sets the join strategy used when multiple
// groups contribute values to the same claim.
func (c *Client) UpdateOAuth2ClaimMapJoin(ctx context.Context, id, claimName, joinStrategy string) error {
	_, err := c.do(ctx, "update-oauth2-claimmap-join", http.MethodPut, fmt.Sprintf("/v1/oauth2/%s/_claimmap/%s/_join", id, claimName), map[string]string{"join": joinStrategy}, nil)
	return err
}

// SetOAuth2Flag toggles one of an OAuth2 client's boolean security flags
// (strict redirect URL matching, PKCE disablement, short-username
// preference, localhost redirect, legacy JWT crypto).
func (c *Client) SetOAuth2Flag(ctx context.Context, id, attr string, value bool) error {
	_, err := c.do(ctx, "set-oauth2-flag-"+attr, http.MethodPut, fmt.Sprintf("/v1/oauth2/%s/_attr/%s", id, attr), []string{strconv.FormatBool(value)}, nil)
	return err
}

// GetOAuth2BasicSecret fetches a confidential OAuth2 client's basic
// secret; callers store it in a Secret since Kanidm does not let it be
// retrieved again once rotated.
func (c *Client) GetOAuth2BasicSecret(ctx context.Context, id string) (string, error) {
	var resp struct {
		Secret string `json:"secret"`
	}
	_, err := c.do(ctx, "get-oauth2-basic-secret", http.MethodGet, fmt.Sprintf("/v1/oauth2/%s/_basic_secret", id), nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Secret, nil
}

// SetPrimaryPassword sets an account's primary credential to password,
// used for server-side-generated person/service-account credentials.
func (c *Client) SetPrimaryPassword(ctx context.Context, kind, id, password string) error {
	req := map[string]string{"password": password}
	_, err := c.do(ctx, "set-password", http.MethodPut, fmt.Sprintf("/v1/%s/%s/_credential/primary/set_password", kind, id), req, nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, kerrors.NewParseError(op+" request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, kerrors.NewKanidmClientError(op, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.KanidmClientCalls.WithLabelValues(op, "transport_error").Inc()
		return 0, kerrors.NewKanidmClientError(op, 0, err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		metrics.KanidmClientCalls.WithLabelValues(op, "read_error").Inc()
		return resp.StatusCode, kerrors.NewKanidmClientError(op, resp.StatusCode, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.KanidmClientCalls.WithLabelValues(op, "http_error").Inc()
		return resp.StatusCode, kerrors.NewKanidmClientError(op, resp.StatusCode, fmt.Errorf("%s", string(respBody)))
	}

	metrics.KanidmClientCalls.WithLabelValues(op, "success").Inc()

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, kerrors.NewParseError(op+" response body", err)
		}
	}
	return resp.StatusCode, nil
}
