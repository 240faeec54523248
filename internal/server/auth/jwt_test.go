package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("actor-1", []byte("secret"), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	actorID, err := GetActorIDFromToken(token, []byte("secret"))
	require.NoError(t, err)
	require.Equal(t, "actor-1", actorID)
}

func TestToken_WrongKey(t *testing.T) {
	token, err := GenerateToken("actor-1", []byte("secret"), time.Hour)
	require.NoError(t, err)

	_, err = GetActorIDFromToken(token, []byte("other"))
	require.Error(t, err)
}

func TestToken_Expired(t *testing.T) {
	token, err := GenerateToken("actor-1", []byte("secret"), -time.Minute)
	require.NoError(t, err)

	_, err = GetActorIDFromToken(token, []byte("secret"))
	require.Error(t, err)
}

func TestToken_Garbage(t *testing.T) {
	_, err := GetActorIDFromToken("not-a-token", []byte("secret"))
	require.Error(t, err)
}
