package glide

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (c *HTTPClient) doRequest(ctx context.Context, creds Credentials, path string, body any, response any) error {
	if creds.APIKey == "" || creds.AppID == "" {
		return fmt.Errorf("glide credentials required for this call")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewBuffer(payload))
	if err != nil {
		return err
	}

	req.Header.Add("Authorization", "Bearer "+creds.APIKey)
	req.Header.Add("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		// transport failure or timeout, retryable
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return &APIError{StatusCode: res.StatusCode, Body: string(b)}
	}

	if response == nil {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(response)
}
