// Package loginserver implements the Login Server Client (§4.4): the
// HTTP/JSON transport to the account server's create/activate/
// change-password/package-fetch endpoints.
package loginserver

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	coreerr "github.com/abcore/core/pkg/errors"
)

const (
	createPath          = "account/create"
	activatePath        = "account/activate"
	changePasswordPath  = "account/password/update"
	getCarePackagePath  = "account/carepackage/get"
	getLoginPackagePath = "account/loginpackage/get"

	defaultTimeout = 30 * time.Second
)

// Status codes in the §4.4 response envelope.
const (
	statusSuccess         = 0
	statusGenericError    = 1
	statusAccountExists   = 2
	statusNoAccount       = 3
	statusInvalidPassword = 4
	statusInvalidAnswers  = 5
)

// Client is the Login Server Client: an HTTP/JSON client bound to one
// account server, verifying TLS against a configured CA bundle when one
// is present (§6 "CA bundle").
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client for baseURL. When caBundlePath is non-empty, the
// file is loaded as a PEM CA bundle and used in place of the system
// trust store: TLS then verifies the peer and enforces that CA, pinning
// MinVersion/RootCAs on the client's *tls.Config.
func New(baseURL string, caBundlePath string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if caBundlePath != "" {
		pemBytes, err := os.ReadFile(caBundlePath) //nolint:gosec // G304: path is operator-supplied configuration, not user input
		if err != nil {
			return nil, fmt.Errorf("%w: reading CA bundle %s: %w", coreerr.ErrURLError, caBundlePath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("%w: no valid certificates in CA bundle %s", coreerr.ErrURLError, caBundlePath)
		}
		tlsConfig.RootCAs = pool
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		},
	}, nil
}

// envelope is the §4.4 response shape: { status_code, message, results }.
type envelope struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Results    json.RawMessage `json:"results"`
}

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func (c *Client) post(ctx context.Context, path string, body any, results any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %w", coreerr.ErrJSONError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: building request: %w", coreerr.ErrURLError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", coreerr.ErrConnectionError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", coreerr.ErrConnectionError, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: parsing response envelope: %w", coreerr.ErrServerError, err)
	}

	if err := classifyStatus(env); err != nil {
		return err
	}

	if results != nil && len(env.Results) > 0 {
		if err := json.Unmarshal(env.Results, results); err != nil {
			return fmt.Errorf("%w: parsing results: %w", coreerr.ErrJSONError, err)
		}
	}

	return nil
}

func classifyStatus(env envelope) error {
	switch env.StatusCode {
	case statusSuccess:
		return nil
	case statusAccountExists:
		return coreerr.ErrAccountAlreadyExists
	case statusNoAccount:
		return coreerr.ErrAccountDoesNotExist
	case statusInvalidPassword:
		return coreerr.ErrBadPassword
	case statusInvalidAnswers:
		return coreerr.ErrInvalidAnswers
	case statusGenericError:
		return coreerr.WithDetails(coreerr.ErrServerError, map[string]string{"message": env.Message})
	default:
		return coreerr.WithDetails(coreerr.ErrServerError, map[string]string{
			"message":     env.Message,
			"status_code": fmt.Sprintf("%d", env.StatusCode),
		})
	}
}

// Create registers a new account row and remote repo (§4.4 "Create").
func (c *Client) Create(ctx context.Context, l1, lp1 []byte, carePackage, loginPackage, repoAccountKeyHex string) error {
	body := map[string]string{
		"l1":               b64(l1),
		"lp1":              b64(lp1),
		"care_package":     carePackage,
		"login_package":    loginPackage,
		"repo_account_key": repoAccountKeyHex,
	}
	return c.post(ctx, createPath, body, nil)
}

// Activate marks the account usable after successful local bootstrap
// (§4.4 "Activate").
func (c *Client) Activate(ctx context.Context, l1, lp1 []byte) error {
	body := map[string]string{"l1": b64(l1), "lp1": b64(lp1)}
	return c.post(ctx, activatePath, body, nil)
}

// ChangePasswordRequest carries the fields for the password/recovery
// change endpoint (§4.4 "ChangePassword"). Exactly one of LP1 or LRA1
// (the old authenticator) must be set; NewLRA1 is only sent when
// SetRecovery is rewrapping the recovery authenticator alongside.
type ChangePasswordRequest struct {
	L1           []byte
	LP1          []byte
	LRA1         []byte
	NewLP1       []byte
	NewLRA1      []byte
	CarePackage  string
	LoginPackage string
}

// ChangePassword replaces the server authenticator(s) and packages
// atomically (§4.4 "ChangePassword").
func (c *Client) ChangePassword(ctx context.Context, r ChangePasswordRequest) error {
	body := map[string]any{
		"l1":            b64(r.L1),
		"new_lp1":       b64(r.NewLP1),
		"care_package":  r.CarePackage,
		"login_package": r.LoginPackage,
	}
	if len(r.LP1) > 0 {
		body["lp1"] = b64(r.LP1)
	}
	if len(r.LRA1) > 0 {
		body["lra1"] = b64(r.LRA1)
	}
	if len(r.NewLRA1) > 0 {
		body["new_lra1"] = b64(r.NewLRA1)
	}
	return c.post(ctx, changePasswordPath, body, nil)
}

// GetCarePackage fetches the publicly retrievable CarePackage JSON
// (§4.4 "GetCarePackage").
func (c *Client) GetCarePackage(ctx context.Context, l1 []byte) (string, error) {
	body := map[string]string{"l1": b64(l1)}
	var results struct {
		CarePackage string `json:"care_package"`
	}
	if err := c.post(ctx, getCarePackagePath, body, &results); err != nil {
		return "", err
	}
	return results.CarePackage, nil
}

// GetLoginPackage fetches the LoginPackage, authenticating with
// whichever of lp1/lra1 the caller holds (exactly one must be non-empty;
// the other is omitted, mirroring the source's nullable LP1/LRA1
// parameters to ABC_LoginServerGetLoginPackage so the server can tell a
// bad password from bad recovery answers) (§4.4 "GetLoginPackage").
func (c *Client) GetLoginPackage(ctx context.Context, l1, lp1, lra1 []byte) (string, error) {
	body := map[string]string{"l1": b64(l1)}
	if len(lp1) > 0 {
		body["lp1"] = b64(lp1)
	}
	if len(lra1) > 0 {
		body["lra1"] = b64(lra1)
	}
	var results struct {
		LoginPackage string `json:"login_package"`
	}
	if err := c.post(ctx, getLoginPackagePath, body, &results); err != nil {
		return "", err
	}
	return results.LoginPackage, nil
}
