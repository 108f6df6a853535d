// Package stream provides the Telegram message source: a one-shot history
// window for batch runs and a poll-based subscription for real-time
// monitoring, both scoped to the single configured chat.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/leokuzmin/telegram-curator/internal/platform/config"
)

// ErrChatNotFound indicates the configured chat is not in the account's
// dialogs.
var ErrChatNotFound = errors.New("configured chat not found in dialogs")

// ErrUnexpectedDialogs indicates an unexpected dialogs response type.
var ErrUnexpectedDialogs = errors.New("unexpected dialogs response")

const (
	dialogsFetchLimit  = 100
	activePollInterval = 5 * time.Second
)

// Message is one inbound chat message.
type Message struct {
	ID       int64
	ChatID   int64
	Text     string
	Date     time.Time
	SenderID int64
}

// OnMessage is invoked once per new message, in ascending message-ID order.
// It must not block on long work; heavy processing belongs to the worker.
type OnMessage func(msg Message)

// Client owns the MTProto session for the monitored chat.
type Client struct {
	cfg    *config.Config
	logger *zerolog.Logger
	client *telegram.Client
}

func New(cfg *config.Config, logger *zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
	}
}

// Session is a connected, authenticated Telegram session with the monitored
// chat resolved.
type Session struct {
	api    *tg.Client
	peer   tg.InputPeerClass
	chatID int64
	cfg    *config.Config
	logger *zerolog.Logger
}

// Run connects, authenticates and resolves the configured chat, then invokes
// fn with the live session. Connection or auth failure here is fatal for the
// process; per-message errors are not.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	client := telegram.NewClient(c.cfg.TGAPIID, c.cfg.TGAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: c.cfg.TGSessionPath,
		},
	})

	c.client = client

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, c.authFlow()); err != nil {
			return fmt.Errorf("telegram auth: %w", err)
		}

		c.logger.Info().Msg("authenticated with Telegram")

		api := tg.NewClient(client)

		peer, err := resolveChatPeer(ctx, api, c.cfg.TGChatID)
		if err != nil {
			return fmt.Errorf("resolve chat %d: %w", c.cfg.TGChatID, err)
		}

		return fn(ctx, &Session{
			api:    api,
			peer:   peer,
			chatID: c.cfg.TGChatID,
			cfg:    c.cfg,
			logger: c.logger,
		})
	})
}

// resolveChatPeer finds the configured chat among the account's dialogs.
// Chat IDs are accepted in bot-API form (-100<channel id>, -<chat id>) or as
// bare peer IDs.
func resolveChatPeer(ctx context.Context, api *tg.Client, chatID int64) (tg.InputPeerClass, error) {
	peerID := normalizePeerID(chatID)

	dialogs, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsFetchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	var chats []tg.ChatClass

	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedDialogs, dialogs)
	}

	for _, chat := range chats {
		switch ch := chat.(type) {
		case *tg.Channel:
			if ch.ID == peerID {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
			}
		case *tg.Chat:
			if ch.ID == peerID {
				return &tg.InputPeerChat{ChatID: ch.ID}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
}

func normalizePeerID(chatID int64) int64 {
	const botAPIChannelOffset = -1000000000000

	if chatID < botAPIChannelOffset {
		return -(chatID - botAPIChannelOffset)
	}

	if chatID < 0 {
		return -chatID
	}

	return chatID
}

// FetchRecent returns up to limit recent messages from the monitored chat,
// newest first.
func (s *Session) FetchRecent(ctx context.Context, limit int) ([]Message, error) {
	return s.history(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  s.peer,
		Limit: limit,
	})
}

// Subscribe polls the chat history and invokes onMessage once per new
// message until ctx is canceled. The poll shortens while traffic is active.
func (s *Session) Subscribe(ctx context.Context, onMessage OnMessage) error {
	lastID, err := s.latestMessageID(ctx)
	if err != nil {
		return fmt.Errorf("read initial offset: %w", err)
	}

	s.logger.Info().Int64("chat_id", s.chatID).Int64("last_id", lastID).Msg("subscribed to chat")

	interval := s.cfg.MonitorPollInterval

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		fresh, err := s.newerThan(ctx, lastID)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to poll chat history")

			continue
		}

		for _, msg := range fresh {
			onMessage(msg)

			if msg.ID > lastID {
				lastID = msg.ID
			}
		}

		// Poll faster while the chat is active.
		if len(fresh) > 0 {
			interval = activePollInterval
		} else {
			interval = s.cfg.MonitorPollInterval
		}
	}
}

// latestMessageID returns the newest message ID, or 0 for an empty chat.
func (s *Session) latestMessageID(ctx context.Context) (int64, error) {
	msgs, err := s.history(ctx, &tg.MessagesGetHistoryRequest{Peer: s.peer, Limit: 1})
	if err != nil {
		return 0, err
	}

	if len(msgs) == 0 {
		return 0, nil
	}

	return msgs[0].ID, nil
}

// newerThan fetches every message with ID greater than lastID, in ascending
// order. A burst larger than one history window is paged through with
// OffsetID so no message is skipped when lastID advances.
func (s *Session) newerThan(ctx context.Context, lastID int64) ([]Message, error) {
	var (
		all      []Message
		offsetID int
	)

	for {
		page, err := s.fetchPage(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     s.peer,
			Limit:    s.cfg.MaxMessages,
			MinID:    int(lastID),
			OffsetID: offsetID,
		})
		if err != nil {
			return nil, err
		}

		all = append(all, page.msgs...)

		// A short page means the window above lastID is exhausted. The raw
		// count decides: service messages are filtered out of msgs but
		// still fill the page.
		if page.count < s.cfg.MaxMessages || page.oldestID <= lastID+1 {
			break
		}

		offsetID = int(page.oldestID)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	return all, nil
}

// historyPage is one MessagesGetHistory response: the text messages it
// carried, plus the raw entry count and oldest raw ID for paging.
type historyPage struct {
	msgs     []Message
	oldestID int64
	count    int
}

func (s *Session) history(ctx context.Context, req *tg.MessagesGetHistoryRequest) ([]Message, error) {
	page, err := s.fetchPage(ctx, req)
	if err != nil {
		return nil, err
	}

	return page.msgs, nil
}

func (s *Session) fetchPage(ctx context.Context, req *tg.MessagesGetHistoryRequest) (historyPage, error) {
	var page historyPage

	history, err := s.api.MessagesGetHistory(ctx, req)
	if err != nil {
		floodErr, ok := tgerr.As(err)
		if ok && floodErr.Type == "FLOOD_WAIT" {
			s.logger.Warn().Int("seconds", floodErr.Argument).Msg("flood wait")

			select {
			case <-ctx.Done():
				return page, ctx.Err()
			case <-time.After(time.Duration(floodErr.Argument) * time.Second):
			}

			return page, nil
		}

		return page, fmt.Errorf("get history: %w", err)
	}

	var raw []tg.MessageClass

	switch h := history.(type) {
	case *tg.MessagesMessages:
		raw = h.Messages
	case *tg.MessagesMessagesSlice:
		raw = h.Messages
	case *tg.MessagesChannelMessages:
		raw = h.Messages
	case *tg.MessagesMessagesNotModified:
		return page, nil
	}

	page.count = len(raw)

	for _, mc := range raw {
		if id := rawMessageID(mc); id > 0 && (page.oldestID == 0 || id < page.oldestID) {
			page.oldestID = id
		}

		msg, ok := mc.(*tg.Message)
		if !ok || msg.Message == "" {
			continue
		}

		page.msgs = append(page.msgs, Message{
			ID:       int64(msg.ID),
			ChatID:   s.chatID,
			Text:     msg.Message,
			Date:     time.Unix(int64(msg.Date), 0),
			SenderID: senderID(msg),
		})
	}

	return page, nil
}

func rawMessageID(mc tg.MessageClass) int64 {
	switch m := mc.(type) {
	case *tg.Message:
		return int64(m.ID)
	case *tg.MessageService:
		return int64(m.ID)
	case *tg.MessageEmpty:
		return int64(m.ID)
	}

	return 0
}

func senderID(msg *tg.Message) int64 {
	if from, ok := msg.FromID.(*tg.PeerUser); ok {
		return from.UserID
	}

	return 0
}
