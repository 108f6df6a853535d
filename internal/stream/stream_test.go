package stream

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/require"
)

func TestNormalizePeerID(t *testing.T) {
	tests := []struct {
		name   string
		chatID int64
		want   int64
	}{
		{name: "bot api channel form", chatID: -1001234567890, want: 1234567890},
		{name: "bot api chat form", chatID: -987654321, want: 987654321},
		{name: "bare peer id", chatID: 1234567890, want: 1234567890},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, normalizePeerID(tt.chatID))
		})
	}
}

func TestSanitizePhone(t *testing.T) {
	require.Equal(t, "+12025550123", sanitizePhone(" +1 (202) 555-0123 \n"))
	require.Equal(t, "79991234567", sanitizePhone("7 999 123 45 67"))
}

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "+12****23", maskPhone("+12025550123"))
	require.Equal(t, "****", maskPhone("12345"))
}

func TestRawMessageID(t *testing.T) {
	require.Equal(t, int64(11), rawMessageID(&tg.Message{ID: 11}))
	require.Equal(t, int64(12), rawMessageID(&tg.MessageService{ID: 12}))
	require.Equal(t, int64(13), rawMessageID(&tg.MessageEmpty{ID: 13}))
}

func TestSenderID(t *testing.T) {
	require.Equal(t, int64(42), senderID(&tg.Message{FromID: &tg.PeerUser{UserID: 42}}))
	require.Equal(t, int64(0), senderID(&tg.Message{FromID: &tg.PeerChannel{ChannelID: 7}}))
	require.Equal(t, int64(0), senderID(&tg.Message{}))
}
