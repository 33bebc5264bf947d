// Package llm provides an OpenRouter chat client used by the tracker's
// assistant features: synopsis translation and "watch next" recommendations.
//
// Every request asks the model for a JSON object. Replies wrapped in code
// fences or surrounded by prose are still decoded (see DecodeJSON).
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx answers, empty completions and
// network timeouts with exponential backoff (base 1s, max 10s, 5 attempts by
// default). A Retry-After header overrides the backoff. Context cancellation
// aborts retries immediately.
//
// # Configuration
//
// Requires api_key and model; base_url, referer, title and timeout are
// optional. Callers check Configured before offering the features.
package llm
