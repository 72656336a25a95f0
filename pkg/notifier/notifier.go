package notifier

import (
	"context"

	"github.com/sirupsen/logrus"
)

type DummyNotifier struct {
	log *logrus.Entry
}

func New(log *logrus.Logger) *DummyNotifier {
	return &DummyNotifier{
		log: log.WithField("component", "notifier"),
	}
}

func (n *DummyNotifier) Notify(_ context.Context, message string, userID string) error {
	n.log.Infof("notifying about user %s: %s", userID, message)
	return nil
}
