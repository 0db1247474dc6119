package services

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	ctx "context"

	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/shared"
)

// LLMService proxies chat and FAQ prompts to an OpenAI-compatible chat
// completions endpoint. The API key never leaves this process; callers only
// see the completion text.
type LLMService struct {
	context.DefaultService

	apiKey string
	apiURL string
	model  string

	client  *http.Client
	limiter *rate.Limiter
}

const LLM_SVC = "llm_svc"

const (
	defaultLLMURL   = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel = "gpt-4o-mini"
)

// System prompts keep the upstream answering as the product assistant, not a
// general-purpose model.
const (
	chatSystemPrompt = "You are Conversa's customer service assistant. Answer questions about the Conversa AI customer service platform. Be concise, friendly and helpful. If a question is outside Conversa's scope, politely say so."
	faqSystemPrompt  = "You are Conversa's FAQ assistant. Answer common questions about the Conversa platform, its pricing, integrations and capabilities. Keep answers short and factual."
)

func (svc LLMService) Id() string {
	return LLM_SVC
}

func (svc *LLMService) Configure(ctx *context.Context) error {
	svc.apiKey = os.Getenv("LLM_API_KEY")
	svc.apiURL = os.Getenv("LLM_API_URL")
	if svc.apiURL == "" {
		svc.apiURL = defaultLLMURL
	}
	svc.model = os.Getenv("LLM_MODEL")
	if svc.model == "" {
		svc.model = defaultLLMModel
	}

	svc.client = &http.Client{Timeout: 30 * time.Second}

	// Upstream providers meter by requests per minute; cap our own outflow a
	// little under typical free-tier limits so bursts degrade locally instead
	// of tripping 429s upstream.
	svc.limiter = rate.NewLimiter(rate.Limit(5), 10)

	return svc.DefaultService.Configure(ctx)
}

func (svc *LLMService) Start() error {
	if svc.apiKey == "" {
		log.Warn("LLM_API_KEY not set, chat and FAQ endpoints will return configuration errors")
	}
	return nil
}

func (svc *LLMService) Configured() bool {
	return svc.apiKey != ""
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat answers a free-form customer message.
func (svc *LLMService) Chat(c ctx.Context, message string) (*dto.CompletionResult, error) {
	return svc.complete(c, chatSystemPrompt, message)
}

// AnswerFAQ answers a question against the FAQ persona.
func (svc *LLMService) AnswerFAQ(c ctx.Context, question string) (*dto.CompletionResult, error) {
	return svc.complete(c, faqSystemPrompt, question)
}

// complete performs a single upstream call. Configuration is verified before
// any network activity so a missing key costs nothing.
func (svc *LLMService) complete(c ctx.Context, system, prompt string) (*dto.CompletionResult, error) {
	if !svc.Configured() {
		return nil, shared.NewConfigError(fmt.Errorf("LLM_API_KEY not set"))
	}

	if err := svc.limiter.Wait(c); err != nil {
		return nil, shared.NewUpstreamError(err, "AI service is temporarily unavailable")
	}

	reqBody := chatCompletionRequest{
		Model: svc.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}

	payload, err := sonic.Marshal(reqBody)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to build AI request")
	}

	req, err := http.NewRequestWithContext(c, http.MethodPost, svc.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to build AI request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+svc.apiKey)

	start := time.Now()
	resp, err := svc.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		log.WithError(err).Error("LLM request failed")
		return nil, shared.NewUpstreamError(err, "AI service request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, shared.NewUpstreamError(err, "AI service response could not be read")
	}

	var completion chatCompletionResponse
	if err := sonic.Unmarshal(body, &completion); err != nil {
		return nil, shared.NewUpstreamError(err, "AI service returned an invalid response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := "AI service returned an error"
		if completion.Error != nil {
			msg = completion.Error.Message
		}
		log.WithFields(log.Fields{
			"status": resp.StatusCode,
			"error":  msg,
		}).Error("LLM request rejected")
		return nil, shared.NewUpstreamError(fmt.Errorf("upstream status %d: %s", resp.StatusCode, msg), "AI service request failed")
	}

	if len(completion.Choices) == 0 {
		return nil, shared.NewUpstreamError(fmt.Errorf("no choices in completion"), "AI service returned an empty response")
	}

	model := completion.Model
	if model == "" {
		model = svc.model
	}

	return &dto.CompletionResult{
		Text:       completion.Choices[0].Message.Content,
		Model:      model,
		DurationMs: duration.Milliseconds(),
	}, nil
}
