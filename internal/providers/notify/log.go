package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier only logs the link. Meant for local development.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(l *logrus.Logger) *LogNotifier { return &LogNotifier{log: l} }

func (n *LogNotifier) Send(ctx context.Context, email, link string) error {
	n.log.WithFields(logrus.Fields{"email": email, "link": link}).Info("invitation (log transport)")
	return nil
}
