package tui

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("tui: chat service is required")

// ErrMissingModel is returned when the console is not bound to a model key.
var ErrMissingModel = errors.New("tui: model key is required")
