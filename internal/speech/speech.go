// Package speech turns voice notes into text with Google Cloud Speech-to-Text.
package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"time"

	speechapi "google.golang.org/api/speech/v1"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/config"
)

// Audio is an encoded recording plus the hints the recognizer needs
type Audio struct {
	Data            []byte
	Encoding        string
	SampleRateHertz int64
	LanguageCode    string
}

// Transcriber converts audio to text. Failures are apperr.ErrUpstreamUnavailable.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// UsageLogger records one recognition call
type UsageLogger interface {
	LogUsage(service, action string, tokens int, duration time.Duration, err error) error
}

// Client is a Transcriber backed by the speech/v1 REST API
type Client struct {
	service  *speechapi.Service
	defaults config.Speech
	usage    UsageLogger
}

// NewClient wraps an authenticated speech service. usage may be nil.
func NewClient(service *speechapi.Service, defaults config.Speech, usage UsageLogger) *Client {
	return &Client{service: service, defaults: defaults, usage: usage}
}

// Transcribe sends the audio inline and joins the top alternative of every result
func (c *Client) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", apperr.Upstream("speech recognize", errors.New("empty audio"))
	}

	req := &speechapi.RecognizeRequest{
		Config: c.recognitionConfig(audio),
		Audio: &speechapi.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio.Data),
		},
	}

	startTime := time.Now()
	resp, err := c.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		c.logUsage(time.Since(startTime), err)
		return "", apperr.Upstream("speech recognize", err)
	}

	transcript := Transcript(resp)
	if transcript == "" {
		err := errors.New("no speech recognized")
		c.logUsage(time.Since(startTime), err)
		return "", apperr.Upstream("speech recognize", err)
	}

	c.logUsage(time.Since(startTime), nil)
	return transcript, nil
}

func (c *Client) recognitionConfig(audio Audio) *speechapi.RecognitionConfig {
	cfg := &speechapi.RecognitionConfig{
		Encoding:                   audio.Encoding,
		SampleRateHertz:            audio.SampleRateHertz,
		LanguageCode:               audio.LanguageCode,
		EnableAutomaticPunctuation: true,
	}
	if cfg.Encoding == "" {
		cfg.Encoding = c.defaults.Encoding
	}
	if cfg.SampleRateHertz == 0 {
		cfg.SampleRateHertz = c.defaults.SampleRateHertz
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = c.defaults.LanguageCode
	}
	return cfg
}

func (c *Client) logUsage(duration time.Duration, err error) {
	if c.usage == nil {
		return
	}
	if logErr := c.usage.LogUsage("speech", "recognize", 0, duration, err); logErr != nil {
		log.Printf("Failed to log usage: %v", logErr)
	}
}

// Transcript joins the best alternative of each result
func Transcript(resp *speechapi.RecognizeResponse) string {
	if resp == nil {
		return ""
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
