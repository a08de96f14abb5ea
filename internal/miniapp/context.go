// Package miniapp models the Farcaster mini-app host: the context handed
// over during the SDK handshake, the compose-cast action, and the manifest
// served to clients.
package miniapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Context is what the host client reports about the viewer. A nil *Context
// means the app is not running inside a Farcaster client.
type Context struct {
	User   User       `json:"user"`
	Client ClientInfo `json:"client"`
}

type User struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PfpURL      string `json:"pfpUrl,omitempty"`
}

type ClientInfo struct {
	ClientFID           int64                `json:"clientFid"`
	Added               bool                 `json:"added"`
	NotificationDetails *NotificationDetails `json:"notificationDetails,omitempty"`
}

// NotificationDetails is where the client accepts notifications for this app.
type NotificationDetails struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// ClientUpdate carries the fields the host may change after the handshake.
// Details always replaces the current notification details, so nil clears
// them. A nil MiniAppAdded keeps the current value.
type ClientUpdate struct {
	Details      *NotificationDetails
	MiniAppAdded *bool
}

// Host events that change the client section after the handshake.
const (
	EventMiniAppAdded          = "miniAppAdded"
	EventMiniAppRemoved        = "miniAppRemoved"
	EventNotificationsEnabled  = "notificationsEnabled"
	EventNotificationsDisabled = "notificationsDisabled"
)

// Events lists the host events UpdateForEvent understands.
func Events() []string {
	return []string{EventMiniAppAdded, EventMiniAppRemoved, EventNotificationsEnabled, EventNotificationsDisabled}
}

// UpdateForEvent returns the client update implied by a host event. ok is
// false when the event changes nothing: an add reported without notification
// details is ignored.
func UpdateForEvent(event string, details *NotificationDetails) (u ClientUpdate, ok bool, err error) {
	switch event {
	case EventMiniAppAdded:
		if details == nil {
			return ClientUpdate{}, false, nil
		}
		added := true
		return ClientUpdate{Details: details, MiniAppAdded: &added}, true, nil
	case EventMiniAppRemoved:
		added := false
		return ClientUpdate{MiniAppAdded: &added}, true, nil
	case EventNotificationsEnabled:
		if details == nil {
			return ClientUpdate{}, false, fmt.Errorf("%s needs notification details", event)
		}
		return ClientUpdate{Details: details}, true, nil
	case EventNotificationsDisabled:
		return ClientUpdate{}, true, nil
	default:
		return ClientUpdate{}, false, fmt.Errorf("unknown host event %q", event)
	}
}

// ParseContext decodes a handshake context document.
func ParseContext(r io.Reader) (*Context, error) {
	var c Context
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding mini-app context: %w", err)
	}
	if c.User.FID <= 0 {
		return nil, errors.New("mini-app context has no user fid")
	}
	return &c, nil
}

// UpdateClient applies u to the client section of c.
func (c *Context) UpdateClient(u ClientUpdate) {
	if c == nil {
		return
	}
	c.Client.NotificationDetails = nil
	if u.Details != nil {
		d := *u.Details
		c.Client.NotificationDetails = &d
	}
	if u.MiniAppAdded != nil {
		c.Client.Added = *u.MiniAppAdded
	}
}
