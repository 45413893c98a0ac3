package aiextractor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

// OpenAIExtractor is the concrete Extractor backed by the OpenAI chat
// completion API. It retries once on transport failure and attempts one
// JSON repair pass before giving up, matching the Discoverer's own
// retry policy.
type OpenAIExtractor struct {
	client      *openai.Client
	model       string
	temperature float32
	log         zerolog.Logger
}

// NewOpenAIExtractor builds an Extractor against apiKey. model defaults
// to "gpt-4o-mini" when modelHint is empty.
func NewOpenAIExtractor(apiKey, modelHint string, log zerolog.Logger) *OpenAIExtractor {
	model := modelHint
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIExtractor{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: 0.1,
		log:         log,
	}
}

type bundleResponse struct {
	ContainerSelector string                      `json:"container_selector"`
	ItemSelectors     map[string]itemSelectorJSON `json:"item_selectors"`
	Confidence        float64                     `json:"confidence"`
}

type itemSelectorJSON struct {
	Selector  string `json:"selector"`
	Attribute string `json:"attribute,omitempty"`
}

func (o *OpenAIExtractor) ProposeBundle(html string, samples []Sample) (BundleResult, error) {
	system := `You infer CSS selectors for an event listing page. Given the full page HTML and a few sample event containers with their rendered text, respond with JSON only: {"container_selector": "...", "item_selectors": {"event_name": {"selector": "..."}, "date_iso": {"selector": "..."}, "time": {"selector": "..."}, "location": {"selector": "..."}, "description": {"selector": "..."}, "target_group": {"selector": "..."}, "status": {"selector": "..."}, "event_url": {"selector": "...", "attribute": "href"}}, "confidence": 0.0}. confidence is your own estimate in [0,1] of how well these selectors generalize across the whole listing.`
	user := buildBundlePrompt(html, samples)

	raw, err := o.callOnce(system, user)
	if err != nil {
		raw, err = o.callOnce(system, user)
		if err != nil {
			return BundleResult{}, &pipeline.AITransportError{Err: err}
		}
	}

	var parsed bundleResponse
	if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr != nil {
		repaired := repairJSON(raw)
		if jsonErr2 := json.Unmarshal([]byte(repaired), &parsed); jsonErr2 != nil {
			return BundleResult{}, &pipeline.AIMalformedResponse{Raw: raw, Err: jsonErr2}
		}
	}

	items := map[string]model.ItemSelector{}
	for field, sel := range parsed.ItemSelectors {
		items[field] = model.ItemSelector{Selector: sel.Selector, Attribute: sel.Attribute}
	}

	return BundleResult{
		Bundle: model.SelectorBundle{
			ContainerSelector: parsed.ContainerSelector,
			ItemSelectors:     items,
		},
		Confidence: parsed.Confidence,
	}, nil
}

type eventListResponse struct {
	Events []map[string]string `json:"events"`
}

func (o *OpenAIExtractor) ExtractEvents(html, sourceURL string) (RawEventResult, error) {
	system := `You extract event listings from HTML. Respond with JSON only: {"events": [{"event_name": "...", "date_iso": "...", "end_date_iso": "...", "time": "...", "location": "...", "target_group_raw": "...", "description": "...", "event_url": "...", "status": "...", "booking": "..."}]}. Use empty strings for fields you can't find. Resolve relative URLs against the source URL.`
	user := fmt.Sprintf("Source URL: %s\n\nHTML:\n%s", sourceURL, truncate(html, 24000))

	raw, err := o.callOnce(system, user)
	if err != nil {
		raw, err = o.callOnce(system, user)
		if err != nil {
			return RawEventResult{}, &pipeline.AITransportError{Err: err}
		}
	}

	var parsed eventListResponse
	if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr != nil {
		repaired := repairJSON(raw)
		if jsonErr2 := json.Unmarshal([]byte(repaired), &parsed); jsonErr2 != nil {
			return RawEventResult{}, &pipeline.AIMalformedResponse{Raw: raw, Err: jsonErr2}
		}
	}

	events := make([]RawFields, 0, len(parsed.Events))
	for _, e := range parsed.Events {
		events = append(events, RawFields(e))
	}
	return RawEventResult{Events: events}, nil
}

func (o *OpenAIExtractor) callOnce(system, user string) (string, error) {
	resp, err := o.client.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return cleanJSONResponse(resp.Choices[0].Message.Content), nil
}

func buildBundlePrompt(html string, samples []Sample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Full page HTML (truncated):\n%s\n\nSample containers:\n", truncate(html, 12000))
	for i, s := range samples {
		fmt.Fprintf(&b, "--- sample %d ---\nHTML: %s\nText: %s\n", i+1, truncate(s.HTML, 2000), truncate(s.Text, 500))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// cleanJSONResponse strips markdown code fences models sometimes wrap
// their JSON in, regardless of the system prompt's instructions.
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// repairJSON applies a balance-braces-and-strip-trailing-commas repair
// pass to malformed JSON before giving up on a response.
func repairJSON(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")

	opens := strings.Count(s, "{") - strings.Count(s, "}")
	for i := 0; i < opens; i++ {
		s += "}"
	}
	opensBracket := strings.Count(s, "[") - strings.Count(s, "]")
	for i := 0; i < opensBracket; i++ {
		s += "]"
	}
	return s
}
