// Package domain holds records shared between the HTTP layer and storage.
package domain

import "time"

// RedirectHit is one served redirect or confirmation page.
type RedirectHit struct {
	Alias         string    `json:"alias"`
	Target        string    `json:"target"`
	Outcome       string    `json:"outcome"`
	Host          string    `json:"host,omitempty"`
	UserAgentHash string    `json:"user_agent_hash,omitempty"`
	IsBot         bool      `json:"is_bot"`
	HitAt         time.Time `json:"hit_at"`
}
