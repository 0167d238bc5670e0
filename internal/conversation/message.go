package conversation

import "github.com/m3rciful/infobot/core/telegram/format"

// Kind tells how an inbound message is interpreted. It is decided once by the
// transport and never re-derived from the text.
type Kind int

const (
	KindText Kind = iota
	KindCommand
	KindMedia
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindMedia:
		return "media"
	default:
		return "text"
	}
}

// Inbound is a message received from a chat.
type Inbound struct {
	ChatID     int64
	SenderID   int64
	SenderName string
	MessageID  int
	Kind       Kind

	// Command is the command token without slash or bot mention; set for KindCommand.
	Command string
	// Args is the text after the command token.
	Args string
	// Text is the raw payload for KindText.
	Text string
	// Media names the payload type for KindMedia, e.g. "photo".
	Media string
}

// NewCommand builds a command message.
func NewCommand(chatID int64, token, args string) Inbound {
	return Inbound{ChatID: chatID, Kind: KindCommand, Command: token, Args: args}
}

// NewText builds a plain text message.
func NewText(chatID int64, body string) Inbound {
	return Inbound{ChatID: chatID, Kind: KindText, Text: body}
}

// NewMedia builds a non-text message.
func NewMedia(chatID int64, media string) Inbound {
	return Inbound{ChatID: chatID, Kind: KindMedia, Media: media}
}

// ParseMode selects how Telegram renders a body.
type ParseMode int

const (
	Plain ParseMode = iota
	HTML
)

// KeyboardAction is the reply keyboard directive attached to a message.
type KeyboardAction int

const (
	KeyboardKeep KeyboardAction = iota
	KeyboardShow
	KeyboardHide
)

// Keyboard describes a reply keyboard change.
type Keyboard struct {
	Action KeyboardAction
	Rows   [][]string
}

// Outbound is a message to send to a chat.
type Outbound struct {
	ChatID   int64
	Body     string
	Mode     ParseMode
	ReplyTo  bool
	Keyboard Keyboard
}

// Split cuts an outbound body into chunks of at most limit characters. Only
// the first chunk replies to the user's message and only the last one carries
// the keyboard directive.
func Split(out Outbound, limit int) []Outbound {
	parts := format.Chunk(out.Body, limit)
	if len(parts) <= 1 {
		return []Outbound{out}
	}
	msgs := make([]Outbound, len(parts))
	for i, p := range parts {
		msgs[i] = Outbound{ChatID: out.ChatID, Body: p, Mode: out.Mode}
	}
	msgs[0].ReplyTo = out.ReplyTo
	msgs[len(msgs)-1].Keyboard = out.Keyboard
	return msgs
}
