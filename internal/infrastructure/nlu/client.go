package nlu

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/domain/nlu"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/metrics"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

const classifySystemPrompt = `Você é o roteador de intenções de um assistente financeiro pessoal em português brasileiro.
Analise a mensagem do usuário e responda APENAS com um objeto JSON com os campos:
  intent: um de [record_expense, query_total, query_category, query_last, query_limits, list_categories, add_category, remove_category, add_limit, remove_limit, remove_expense, setup, help, clarify, out_of_scope]
  amount: valor numérico em reais quando houver (ex: 45.90), senão null
  description: descrição curta do gasto quando houver
  category: nome da categoria mencionada, se houver
  period: "day", "week", "month" ou "all" quando a pergunta se referir a um período relativo
  from_date, to_date: datas ISO-8601 (YYYY-MM-DD) quando o usuário citar datas explícitas
  period_kind: para limites, um de [daily, weekly, monthly, custom]
  remove_last: true quando o usuário quer remover o último gasto
  question: quando intent=clarify, a pergunta a fazer ao usuário
  missing: quando intent=clarify, lista dos campos que faltam (ex: ["description"])

Regras:
- "gastei 30 no mercado" -> record_expense com amount=30, description="mercado".
- Valor sem descrição ou descrição sem valor -> intent=clarify pedindo o que falta.
- Perguntas sobre quanto foi gasto -> query_total (geral) ou query_category (uma categoria).
- Assuntos fora de finanças pessoais -> out_of_scope.
- Nunca invente valores que o usuário não disse.`

const resolveSystemPrompt = `Você é o resolvedor de esclarecimentos de um assistente financeiro em português brasileiro.
O assistente fez uma pergunta ao usuário para completar uma operação pendente e recebeu uma resposta.
Combine a resposta com os campos já conhecidos e responda APENAS com um objeto JSON no mesmo formato do roteador
(intent, amount, description, category, period, from_date, to_date, period_kind, remove_last, question, missing).
- Se a resposta completa a operação pendente, use a intenção pendente com todos os campos preenchidos.
- Se a resposta ainda não é suficiente, use intent=clarify com a nova pergunta e os campos que faltam.
- Se a resposta muda de assunto, classifique a nova mensagem normalmente.`

// classifierPayload is the JSON contract the model is asked to produce.
type classifierPayload struct {
	Intent      string   `json:"intent"`
	Amount      *float64 `json:"amount"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Period      string   `json:"period"`
	FromDate    string   `json:"from_date"`
	ToDate      string   `json:"to_date"`
	PeriodKind  string   `json:"period_kind"`
	RemoveLast  bool     `json:"remove_last"`
	Question    string   `json:"question"`
	Missing     []string `json:"missing"`
}

// Client classifies user messages through an OpenAI-compatible chat endpoint.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	retryCfg    RetryConfig
	breaker     *CircuitBreaker
}

var _ nlu.Classifier = (*Client)(nil)

func NewClient(cfg *config.Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.NLUAPIKey)
	if cfg.NLUBaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.NLUBaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.NLUTimeout}

	retryCfg := DefaultRetryConfig()
	if cfg.NLUMaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.NLUMaxRetries + 1
	}

	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.NLUModel,
		temperature: cfg.NLUTemperature,
		retryCfg:    retryCfg,
		breaker:     NewCircuitBreaker(DefaultCircuitBreakerConfig()),
	}
}

func (c *Client) Classify(ctx context.Context, text string, history []*convo.Turn) (*nlu.Classification, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
	}
	for _, turn := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Inbound},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Outbound},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	return c.complete(ctx, "classify", messages)
}

func (c *Client) ResolveClarification(ctx context.Context, text string, pending *convo.PendingClarification) (*nlu.Classification, error) {
	pendingJSON, err := json.Marshal(pending)
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeInternal,
			"failed to encode pending clarification",
			err,
			"b4f7c2f6-9d14-4a14-8a59-0c2f6f3f7a21",
		)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: resolveSystemPrompt},
		{Role: openai.ChatMessageRoleSystem, Content: "Operação pendente: " + string(pendingJSON)},
		{Role: openai.ChatMessageRoleAssistant, Content: pending.Question},
		{Role: openai.ChatMessageRoleUser, Content: text},
	}

	return c.complete(ctx, "resolve_clarification", messages)
}

func (c *Client) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessage) (*nlu.Classification, error) {
	log := logger.WithComponent("nlu")
	start := time.Now()

	var resp *openai.ChatCompletionResponse
	err := c.breaker.Execute(operation, func() error {
		var execErr error
		resp, execErr = WithRetry(ctx, c.retryCfg, operation, func() (*openai.ChatCompletionResponse, error) {
			r, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    messages,
				Temperature: c.temperature,
				ResponseFormat: &openai.ChatCompletionResponseFormat{
					Type: openai.ChatCompletionResponseFormatTypeJSONObject,
				},
			})
			if err != nil {
				return nil, err
			}
			return &r, nil
		})
		return execErr
	})
	if err != nil {
		metrics.RecordNLURequest(operation, "error", time.Since(start).Seconds())
		log.Error().Err(err).Str("operation", operation).Msg("chat completion failed")
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			"language model request failed",
			err,
			"5f0f6a6e-0a1d-4c8b-9a3e-64c8d1b2e973",
		)
	}
	if resp == nil || len(resp.Choices) == 0 {
		metrics.RecordNLURequest(operation, "error", time.Since(start).Seconds())
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			"language model returned no choices",
			nil,
			"8a2c41d7-3b6f-4f3a-b1de-7a90c5e2d448",
		)
	}

	classification, err := parsePayload(ctx, resp.Choices[0].Message.Content)
	if err != nil {
		metrics.RecordNLURequest(operation, "parse_error", time.Since(start).Seconds())
		log.Warn().Err(err).Str("operation", operation).Msg("unparseable model output")
		return nil, err
	}

	metrics.RecordNLURequest(operation, "success", time.Since(start).Seconds())
	return classification, nil
}

func parsePayload(ctx context.Context, content string) (*nlu.Classification, error) {
	content = strings.TrimSpace(content)
	// Some models wrap JSON in markdown fences despite the response format.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payload classifierPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeValidation,
			"model output is not valid JSON",
			err,
			"c9d3b8a1-5e72-4b0f-8c64-2f1a9d7e3b50",
		)
	}

	intent, ok := nlu.KnownIntent(payload.Intent)
	if !ok {
		intent = nlu.IntentOutOfScope
	}

	classification := &nlu.Classification{
		Intent:      intent,
		Description: strings.TrimSpace(payload.Description),
		Category:    strings.TrimSpace(payload.Category),
		Period:      strings.TrimSpace(payload.Period),
		PeriodKind:  strings.TrimSpace(payload.PeriodKind),
		RemoveLast:  payload.RemoveLast,
		Question:    strings.TrimSpace(payload.Question),
		Missing:     payload.Missing,
	}
	if payload.Amount != nil {
		amount := decimal.NewFromFloat(*payload.Amount)
		classification.Amount = &amount
	}
	if payload.FromDate != "" {
		if t, err := time.Parse("2006-01-02", payload.FromDate); err == nil {
			classification.FromDate = &t
		}
	}
	if payload.ToDate != "" {
		if t, err := time.Parse("2006-01-02", payload.ToDate); err == nil {
			classification.ToDate = &t
		}
	}

	return classification, nil
}
