package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

const component = "llm"

const translatePrompt = `You translate anime synopses.
Translate the user's text into %s. Keep character names, titles and honorifics as written.
Do not add commentary. Respond with JSON only: {"translation": "<translated text>"}`

const recommendPrompt = `You recommend anime to a viewer.
The user lists titles they finished, each with an optional 1-10 rating.
Suggest up to %d other anime they are likely to enjoy. Never suggest a title from the list.
Respond with JSON only: {"recommendations": [{"title": "...", "reason": "<one sentence>"}]}`

// Seed is a title the viewer has watched, used to steer recommendations.
type Seed struct {
	Title  string
	Rating int
}

// Recommendation is one suggested title.
type Recommendation struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

func (c *Client) requireConfigured(operation string) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, component, operation, "llm api_key and model are required", nil)
	}
	return nil
}

// Translate renders text in targetLanguage.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	text = strings.TrimSpace(text)
	targetLanguage = strings.TrimSpace(targetLanguage)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, component, "translate", "text is empty", nil)
	}
	if targetLanguage == "" {
		return "", services.Wrap(services.ErrValidation, component, "translate", "target language is empty", nil)
	}
	if err := c.requireConfigured("translate"); err != nil {
		return "", err
	}
	content, err := c.complete(ctx, "translate", fmt.Sprintf(translatePrompt, targetLanguage), text, 0)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Translation string `json:"translation"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return "", services.Wrap(services.ErrExternal, component, "translate", "parse payload", err)
	}
	translation := strings.TrimSpace(parsed.Translation)
	if translation == "" {
		return "", services.Wrap(services.ErrExternal, component, "translate", "model returned an empty translation", nil)
	}
	return translation, nil
}

// Recommend suggests up to limit titles based on seeds. Suggestions that
// repeat a seed title are dropped.
func (c *Client) Recommend(ctx context.Context, seeds []Seed, limit int) ([]Recommendation, error) {
	if len(seeds) == 0 {
		return nil, services.Wrap(services.ErrValidation, component, "recommend", "at least one watched title is required", nil)
	}
	if limit <= 0 {
		limit = 5
	}
	if err := c.requireConfigured("recommend"); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(seeds))
	var prompt strings.Builder
	for _, seed := range seeds {
		title := strings.TrimSpace(seed.Title)
		if title == "" {
			continue
		}
		seen[strings.ToLower(title)] = struct{}{}
		prompt.WriteString("- ")
		prompt.WriteString(title)
		if seed.Rating > 0 {
			fmt.Fprintf(&prompt, " (%d/10)", seed.Rating)
		}
		prompt.WriteByte('\n')
	}

	content, err := c.complete(ctx, "recommend", fmt.Sprintf(recommendPrompt, limit), prompt.String(), 0.7)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternal, component, "recommend", "parse payload", err)
	}

	out := make([]Recommendation, 0, limit)
	for _, rec := range parsed.Recommendations {
		rec.Title = strings.TrimSpace(rec.Title)
		rec.Reason = strings.TrimSpace(rec.Reason)
		key := strings.ToLower(rec.Title)
		if rec.Title == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
