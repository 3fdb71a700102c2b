package model

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// Client-to-server command frame of the live channel.
type CentrifugoCommand struct {
	ID        uint32               `json:"id"`
	Connect   *CentrifugoConnect   `json:"connect,omitempty"`
	Subscribe *CentrifugoSubscribe `json:"subscribe,omitempty"`
}

type CentrifugoConnect struct {
	Token string `json:"token"`
}

type CentrifugoSubscribe struct {
	Channel string `json:"channel"`
	Token   string `json:"token,omitempty"`
}

// Server-to-client frame: either a reply to a command (ID set) or an
// asynchronous push.
type CentrifugoReply struct {
	ID    uint32           `json:"id,omitempty"`
	Error *CentrifugoError `json:"error,omitempty"`
	Push  *CentrifugoPush  `json:"push,omitempty"`
}

type CentrifugoError struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

type CentrifugoPush struct {
	Channel     string                 `json:"channel"`
	Pub         *CentrifugoPublication `json:"pub,omitempty"`
	Unsubscribe *CentrifugoUnsubscribe `json:"unsubscribe,omitempty"`
}

type CentrifugoUnsubscribe struct {
	Code uint32 `json:"code"`
}

type CentrifugoPublication struct {
	Data json.RawMessage `json:"data"`
}

type CentrifugoSubscribeClaims struct {
	jwt.RegisteredClaims

	Channel  string `json:"channel"`
	UserID   string `json:"user_id"`
	StreamID string `json:"stream_id"`
}

// AccountClaims are carried by the access token and describe which side of
// the marketplace the user is on.
type AccountClaims struct {
	jwt.RegisteredClaims

	AccountType         string `json:"account_type"`
	EnterpriseProfileID string `json:"enterprise_profile_id,omitempty"`
	CandidateProfileID  string `json:"candidate_profile_id,omitempty"`
}
