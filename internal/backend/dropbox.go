package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/mindmorass/clipdeck/internal/keychain"
)

const (
	// DefaultDropboxPath is the file path in Dropbox
	DefaultDropboxPath = "/Apps/clipdeck/" + LibraryFile

	dropboxContentAPI = "https://content.dropboxapi.com/2"
	dropboxAPI        = "https://api.dropboxapi.com/2"
	dropboxAuthURL    = "https://www.dropbox.com/oauth2/authorize"
	dropboxTokenURL   = "https://api.dropboxapi.com/oauth2/token"

	tokenAccount = "tokens"
)

// TokenStore persists Dropbox OAuth tokens
type TokenStore interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Delete() error
}

type storedTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// DropboxBackend keeps the snapshot in the user's Dropbox
type DropboxBackend struct {
	appKey       string
	appSecret    string
	path         string
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time

	contentAPI string
	api        string
	authURL    string
	tokenURL   string

	tokens      TokenStore
	httpClient  *http.Client
	oauthConfig *oauth2.Config
}

// NewDropboxBackend creates a new Dropbox backend with tokens kept in the
// system keychain
func NewDropboxBackend(appKey, appSecret string) *DropboxBackend {
	return &DropboxBackend{
		appKey:     appKey,
		appSecret:  appSecret,
		path:       DefaultDropboxPath,
		contentAPI: dropboxContentAPI,
		api:        dropboxAPI,
		authURL:    dropboxAuthURL,
		tokenURL:   dropboxTokenURL,
		tokens:     keychain.Item{Service: keychain.ServiceDropbox, Account: tokenAccount},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Type returns the backend type
func (b *DropboxBackend) Type() BackendType {
	return BackendDropbox
}

// GetLocation returns the Dropbox file path
func (b *DropboxBackend) GetLocation() string {
	if b.accessToken == "" {
		return ""
	}
	return "dropbox:" + b.path
}

// SetLocation sets the Dropbox file path. Paths are absolute within the
// user's Dropbox.
func (b *DropboxBackend) SetLocation(location string) error {
	location = strings.TrimPrefix(strings.TrimSpace(location), "dropbox:")
	if location == "" {
		b.path = DefaultDropboxPath
		return nil
	}
	if !strings.HasPrefix(location, "/") {
		return fmt.Errorf("dropbox path must start with /: %s", location)
	}
	b.path = location
	return nil
}

func (b *DropboxBackend) config() *oauth2.Config {
	if b.oauthConfig == nil {
		b.oauthConfig = &oauth2.Config{
			ClientID:     b.appKey,
			ClientSecret: b.appSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  b.authURL,
				TokenURL: b.tokenURL,
			},
		}
	}
	return b.oauthConfig
}

// Init loads stored tokens and refreshes them if expired
func (b *DropboxBackend) Init(ctx context.Context) error {
	if b.appKey == "" {
		return fmt.Errorf("dropbox app key: %w", ErrNotConfigured)
	}

	if b.accessToken == "" {
		if err := b.loadTokens(); err != nil {
			return fmt.Errorf("dropbox not authenticated: %w", err)
		}
	}

	if !b.tokenExpiry.IsZero() && time.Now().After(b.tokenExpiry) {
		if err := b.refreshAccessToken(ctx); err != nil {
			return fmt.Errorf("failed to refresh token: %w", err)
		}
	}
	return nil
}

// Close releases resources
func (b *DropboxBackend) Close() error {
	return nil
}

// Write uploads the snapshot, overwriting the previous one
func (b *DropboxBackend) Write(ctx context.Context, data []byte) error {
	if b.accessToken == "" {
		return ErrNotConfigured
	}

	argsJSON, err := json.Marshal(map[string]any{
		"path":       b.path,
		"mode":       "overwrite",
		"autorename": false,
		"mute":       true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.contentAPI+"/files/upload", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.accessToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", string(argsJSON))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Read downloads the snapshot
func (b *DropboxBackend) Read(ctx context.Context) ([]byte, error) {
	if b.accessToken == "" {
		return nil, ErrNotConfigured
	}

	argsJSON, _ := json.Marshal(map[string]string{"path": b.path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.contentAPI+"/files/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.accessToken)
	req.Header.Set("Dropbox-API-Arg", string(argsJSON))

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if resp.StatusCode == http.StatusConflict && isDropboxNotFound(body) {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// GetModTime returns the last modification time from Dropbox metadata
func (b *DropboxBackend) GetModTime(ctx context.Context) (time.Time, error) {
	meta, err := b.getMetadata(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return meta.ServerModified, nil
}

// Exists returns true if the file exists in Dropbox
func (b *DropboxBackend) Exists(ctx context.Context) bool {
	_, err := b.getMetadata(ctx)
	return err == nil
}

type dropboxMetadata struct {
	Rev            string    `json:"rev"`
	ContentHash    string    `json:"content_hash"`
	ServerModified time.Time `json:"server_modified"`
	Size           int64     `json:"size"`
}

func (b *DropboxBackend) getMetadata(ctx context.Context) (*dropboxMetadata, error) {
	if b.accessToken == "" {
		return nil, ErrNotConfigured
	}

	argsJSON, _ := json.Marshal(map[string]string{"path": b.path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.api+"/files/get_metadata", bytes.NewReader(argsJSON))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get_metadata failed with status %d: %s", resp.StatusCode, string(body))
	}

	var meta dropboxMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetAuthURL returns the OAuth authorization URL for user authentication
func (b *DropboxBackend) GetAuthURL(state string) string {
	return b.config().AuthCodeURL(state,
		oauth2.SetAuthURLParam("token_access_type", "offline"),
	)
}

// ExchangeCode exchanges an authorization code for tokens and stores them
func (b *DropboxBackend) ExchangeCode(ctx context.Context, code string) error {
	token, err := b.config().Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	b.accessToken = token.AccessToken
	b.refreshToken = token.RefreshToken
	b.tokenExpiry = token.Expiry
	return b.saveTokens()
}

// SetTokens sets the OAuth tokens directly
func (b *DropboxBackend) SetTokens(accessToken, refreshToken string, expiry time.Time) {
	b.accessToken = accessToken
	b.refreshToken = refreshToken
	b.tokenExpiry = expiry
}

// IsAuthenticated returns true if the backend has an access token
func (b *DropboxBackend) IsAuthenticated() bool {
	return b.accessToken != ""
}

func (b *DropboxBackend) refreshAccessToken(ctx context.Context) error {
	if b.refreshToken == "" {
		return errors.New("no refresh token available")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	newToken, err := b.config().TokenSource(ctx, &oauth2.Token{RefreshToken: b.refreshToken}).Token()
	if err != nil {
		return err
	}

	b.accessToken = newToken.AccessToken
	if newToken.RefreshToken != "" {
		b.refreshToken = newToken.RefreshToken
	}
	b.tokenExpiry = newToken.Expiry
	return b.saveTokens()
}

func (b *DropboxBackend) loadTokens() error {
	data, err := b.tokens.Load()
	if err != nil {
		return err
	}

	var tokens storedTokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	b.accessToken = tokens.AccessToken
	b.refreshToken = tokens.RefreshToken
	b.tokenExpiry = tokens.Expiry
	return nil
}

func (b *DropboxBackend) saveTokens() error {
	data, err := json.Marshal(storedTokens{
		AccessToken:  b.accessToken,
		RefreshToken: b.refreshToken,
		Expiry:       b.tokenExpiry,
	})
	if err != nil {
		return err
	}
	return b.tokens.Save(data)
}

// ClearTokens removes stored tokens
func (b *DropboxBackend) ClearTokens() error {
	b.accessToken = ""
	b.refreshToken = ""
	b.tokenExpiry = time.Time{}
	return b.tokens.Delete()
}

func isDropboxNotFound(body []byte) bool {
	var errResp struct {
		Error struct {
			Tag  string `json:".tag"`
			Path struct {
				Tag string `json:".tag"`
			} `json:"path"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Path.Tag != "" {
		return errResp.Error.Path.Tag == "not_found"
	}
	return strings.Contains(string(body), "not_found")
}
