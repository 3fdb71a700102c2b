package centrifugo

import "github.com/s21platform/chat-sync/internal/transport"

// Error and unsubscribe codes shared by the live server and client.
const (
	CodeInternal         uint32 = 100
	CodeUnauthorized     uint32 = 101
	CodeUnknownChannel   uint32 = 102
	CodePermissionDenied uint32 = 103
	CodeBadRequest       uint32 = 107
	CodeTokenExpired     uint32 = 109
)

// CodeOf picks the code reported to the client for a backend failure.
func CodeOf(err error) uint32 {
	switch transport.KindOf(err) {
	case transport.KindNotFound:
		return CodeUnknownChannel
	case transport.KindPermissionDenied:
		return CodePermissionDenied
	case transport.KindInvalidInput:
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

// KindOf maps a code received from the server to a transport error kind.
func KindOf(code uint32) transport.Kind {
	switch code {
	case CodeUnauthorized, CodePermissionDenied, CodeTokenExpired:
		return transport.KindPermissionDenied
	case CodeUnknownChannel:
		return transport.KindNotFound
	case CodeBadRequest:
		return transport.KindInvalidInput
	default:
		return transport.KindNetworkUnavailable
	}
}
