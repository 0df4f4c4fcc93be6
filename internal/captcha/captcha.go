package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ridefuture-be/internal/logger"

	"go.uber.org/zap"
)

const defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// ErrRejected means the verifier answered but did not accept the token.
var ErrRejected = errors.New("captcha rejected")

type Verifier interface {
	// Enabled reports whether tokens must be checked at all.
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) error
}

type recaptcha struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

func NewRecaptcha(secret string) Verifier {
	if secret == "" {
		logger.L().Warn("reCAPTCHA secret is empty, captcha checks disabled")
	}

	return &recaptcha{
		secret:    secret,
		verifyURL: defaultVerifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *recaptcha) Enabled() bool { return c.secret != "" }

type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

func (c *recaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	log := logger.FromCtx(ctx).With(zap.String("component", "recaptcha"))

	if !c.Enabled() {
		return nil
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("reCAPTCHA request failed", zap.Error(err))
		return fmt.Errorf("recaptcha request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read recaptcha response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("reCAPTCHA returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return fmt.Errorf("recaptcha error: status %d", resp.StatusCode)
	}

	var res verifyResponse
	if err := json.Unmarshal(body, &res); err != nil {
		log.Error("Failed decoding reCAPTCHA response", zap.Error(err))
		return err
	}

	if !res.Success {
		log.Warn("captcha token rejected", zap.Strings("error_codes", res.ErrorCodes))
		return ErrRejected
	}
	return nil
}
