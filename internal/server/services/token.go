package services

import (
	"strconv"
	"strings"

	"github.com/vterekhov/recordsync/internal/wire"
)

// Change tokens are opaque to clients but are just an encoded version
// cursor: "v" followed by the highest version the client has seen.

func encodeToken(version int64) wire.Token {
	if version == 0 {
		return ""
	}
	return wire.Token("v" + strconv.FormatInt(version, 10))
}

// parseToken decodes a client-presented token. Garbage tokens are treated
// as expired so the client recovers by refetching from scratch.
func parseToken(t wire.Token) (int64, error) {
	if t == "" {
		return 0, nil
	}
	raw, ok := strings.CutPrefix(string(t), "v")
	if !ok {
		return 0, ErrExpiredToken
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, ErrExpiredToken
	}
	return v, nil
}
