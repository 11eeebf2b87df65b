package advisor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanMarkdownWrapper strips a markdown code fence from model output.
// Models sometimes wrap JSON in ```json blocks despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if idx := strings.Index(content, "\n"); idx >= 0 {
		// Drop the language hint line ("json", "JSON", or empty).
		content = content[idx+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// decodeResponse parses model output into a Response. Any deviation from the
// contract is ErrResponseInvalid; callers must not retry it.
func decodeResponse(content string) (Response, error) {
	content = cleanMarkdownWrapper(content)

	var resp Response
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return resp, nil
}

// buildPrompt renders the request as the user message. The payload is
// embedded as JSON so the model sees exactly what the bridge recorded.
func buildPrompt(req Request) (string, error) {
	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	return fmt.Sprintf(`You are given the statistical profile of a tabular dataset, a few sample rows, and a catalog of available transformers.

Recommend data-preparation transformations. Rules:
- Only reference columns that appear in the profile.
- Only use transformer names from the catalog, with parameters that match their declared schema.
- Recommend at most %d transformations.
- Order matters: transformations apply sequentially, so later ones see earlier results.

Respond with a JSON object of the form:
{"recommendations": [{"column": "...", "transformer": "...", "params": {}, "rationale": "...", "confidence": 0.0}]}

Request:
%s`, req.MaxRecommendations, payload), nil
}
