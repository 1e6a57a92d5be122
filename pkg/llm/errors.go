package llm

import "errors"

var (
	ErrBlankPrompt    = errors.New("prompt must not be blank")
	ErrEmptyResponse  = errors.New("empty response from model")
	ErrAPIKeyNotSet   = errors.New("API key is not set")
	ErrUnsupportedTag = errors.New("unsupported provider")
)
