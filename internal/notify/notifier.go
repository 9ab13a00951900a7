package notify

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelSuccess Level = "success"
)

type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// FeedNotifier publishes operator notifications to a game's feed and the log.
// Calls never block and never fail.
type FeedNotifier struct {
	feed   *Feed
	gameID string
}

func NewFeedNotifier(feed *Feed, gameID string) *FeedNotifier {
	return &FeedNotifier{feed: feed, gameID: gameID}
}

func (n *FeedNotifier) Error(title, message string) {
	n.publish(LevelError, zerolog.ErrorLevel, title, message)
}

func (n *FeedNotifier) Warning(title, message string) {
	n.publish(LevelWarning, zerolog.WarnLevel, title, message)
}

func (n *FeedNotifier) Success(title, message string) {
	n.publish(LevelSuccess, zerolog.DebugLevel, title, message)
}

func (n *FeedNotifier) publish(level Level, logLevel zerolog.Level, title, message string) {
	log.WithLevel(logLevel).Str("game_id", n.gameID).Str("title", title).Msg(message)
	if n.feed != nil {
		n.feed.Append(EventNotification, Notification{Level: level, Title: title, Message: message})
	}
}
