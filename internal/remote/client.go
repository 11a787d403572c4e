// Package remote talks to OpenAI-compatible endpoints: streamed chat for the
// remote runtime, and the transcription, vision and completion calls that
// back host tools.
package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"localassist/pkg/types"
)

// Config holds endpoint and model choices.
type Config struct {
	BaseURL string
	APIKey  string
	// Models used by the host capabilities; empty fields use defaults.
	VisionModel    string
	AudioModel     string
	ReasoningModel string
	HTTPClient     *http.Client
}

// ChatOptions are sampling options for StreamChat.
type ChatOptions struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
	Stop        []string
	Seed        int
}

// Client wraps a go-openai client.
type Client struct {
	api *openai.Client
	cfg Config
}

// New builds a client for cfg.BaseURL (e.g. "http://localhost:8080/v1").
func New(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if u := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); u != "" {
		oc.BaseURL = u
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = openai.GPT4oMini
	}
	if cfg.AudioModel == "" {
		cfg.AudioModel = openai.Whisper1
	}
	if cfg.ReasoningModel == "" {
		cfg.ReasoningModel = openai.GPT4oMini
	}
	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg}
}

func toMessages(turns []types.PromptTurn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		msg := openai.ChatCompletionMessage{Content: t.Content}
		switch t.Role {
		case types.RoleSystem:
			msg.Role = openai.ChatMessageRoleSystem
		case types.RoleAssistant:
			msg.Role = openai.ChatMessageRoleAssistant
		case types.RoleTool:
			// Tool output is spliced as text; there is no tool_call_id to pair it with.
			msg.Role = openai.ChatMessageRoleUser
			msg.Content = "[tool result]\n" + t.Content
		default:
			msg.Role = openai.ChatMessageRoleUser
		}
		out = append(out, msg)
	}
	return out
}

// StreamChat streams a chat completion, calling onDelta for each content
// delta. An error from onDelta stops the stream and is returned unchanged.
func (c *Client) StreamChat(ctx context.Context, model string, turns []types.PromptTurn, opts ChatOptions, onDelta func(string) error) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toMessages(turns),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
		Stream:      true,
	}
	if opts.Seed != 0 {
		seed := opts.Seed
		req.Seed = &seed
	}
	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("remote chat: %w", err)
	}
	defer stream.Close()
	var finish string
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return finish, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return finish, ctx.Err()
			}
			return finish, fmt.Errorf("remote chat stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		ch := resp.Choices[0]
		if ch.Delta.Content != "" {
			if cbErr := onDelta(ch.Delta.Content); cbErr != nil {
				return finish, cbErr
			}
		}
		if ch.FinishReason != "" {
			finish = string(ch.FinishReason)
		}
	}
}

// Complete runs a non-streamed completion with an optional system prompt.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.ReasoningModel,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("remote completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("remote completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe converts the audio file at path to text.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.AudioModel,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("remote transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// DescribeImage asks the vision model about the image file at path.
func (c *Client) DescribeImage(ctx context.Context, path, prompt string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mt, "image/") {
		return "", fmt.Errorf("not an image: %s (%s)", path, mt)
	}
	if prompt == "" {
		prompt = "Describe this image."
	}
	uri := "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: uri, Detail: openai.ImageURLDetailAuto}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("remote vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("remote vision: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
