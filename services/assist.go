package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// AssistClient calls an OpenAI-compatible chat completion endpoint. Callers
// always have static fallback text ready: any failure here is swallowed by
// the route and replaced with the fallback, never surfaced as an error.
type AssistClient struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	log      *logrus.Logger
}

// NewAssistClient reads ASSIST_API_URL, ASSIST_API_KEY and ASSIST_MODEL. The
// breaker opens after repeated upstream failures so a degraded provider stops
// costing a round trip per request.
func NewAssistClient(log *logrus.Logger) *AssistClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "assist",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 60 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("assist breaker state change")
		},
	})

	return &AssistClient{
		endpoint: os.Getenv("ASSIST_API_URL"),
		apiKey:   os.Getenv("ASSIST_API_KEY"),
		model:    os.Getenv("ASSIST_MODEL"),
		http:     &http.Client{Timeout: 30 * time.Second},
		breaker:  breaker,
		log:      log,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a system prompt and user prompt, returning the completion
// text.
func (c *AssistClient) Complete(system, prompt string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("assist: ASSIST_API_URL not configured")
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(system, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *AssistClient) complete(system, prompt string) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("assist: upstream status %d", res.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("assist: bad response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("assist: empty completion")
	}

	return parsed.Choices[0].Message.Content, nil
}
