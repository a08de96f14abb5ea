package miniapp

import (
	"errors"
	"net/url"
	"strings"
)

const (
	composeURL = "https://farcaster.xyz/~/compose"
	maxEmbeds  = 2
)

var (
	ErrEmptyText     = errors.New("enter text to publish")
	ErrNoContext     = errors.New("not running in Farcaster: open this app from a Farcaster client")
	ErrTooManyEmbeds = errors.New("a cast holds at most 2 embeds")
)

// Cast is a compose-cast intent: the text and embeds a client should
// pre-fill in its composer.
type Cast struct {
	Text   string   `json:"text"`
	Embeds []string `json:"embeds,omitempty"`
}

// URL returns the universal compose link for the cast.
func (c Cast) URL() string {
	q := url.Values{}
	q.Set("text", c.Text)
	for _, e := range c.Embeds {
		q.Add("embeds[]", e)
	}
	return composeURL + "?" + q.Encode()
}

// UserMessage returns the wording shown to the person publishing for an error
// from Compose. ok is false for any other error.
func UserMessage(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, ErrEmptyText):
		return "Please enter text to publish", true
	case errors.Is(err, ErrNoContext):
		return "Not running in Farcaster. Please open this app in a Farcaster client.", true
	case errors.Is(err, ErrTooManyEmbeds):
		return "A cast can carry at most 2 embeds", true
	}
	return "", false
}

// Compose prepares a cast of text for the viewer described by mc.
// Blank text is rejected before the context is consulted.
func Compose(mc *Context, text string, embeds ...string) (Cast, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Cast{}, ErrEmptyText
	}
	if mc == nil {
		return Cast{}, ErrNoContext
	}
	if len(embeds) > maxEmbeds {
		return Cast{}, ErrTooManyEmbeds
	}
	return Cast{Text: text, Embeds: embeds}, nil
}
