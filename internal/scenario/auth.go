package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dsr-ph/dsr-loadtest/pkg/config"
	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

// Authenticate performs the setup auth handshake against the target and
// returns the bearer token consumed by all scenarios. Any failure here is a
// SetupError; the orchestrator aborts without generating load.
func Authenticate(ctx context.Context, target config.TargetConfig) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     target.ClientID,
		"client_secret": target.ClientSecret,
	})
	if err != nil {
		return "", errors.NewSetupError("marshal auth request").WithCause(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, target.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target.BaseURL+target.AuthPath, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewSetupError("build auth request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: target.RequestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.NewSetupError("target unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewSetupError(fmt.Sprintf("auth handshake returned status %d", resp.StatusCode)).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		Token       string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.NewSetupError("decode auth response").WithCause(err)
	}

	token := payload.AccessToken
	if token == "" {
		token = payload.Token
	}
	if token == "" {
		return "", errors.NewSetupError("auth response contained no token")
	}

	return token, nil
}
