package services

import "github.com/sirupsen/logrus"

// EventPublisher publishes catalog mutation events. A nil publisher
// disables eventing entirely.
type EventPublisher interface {
	PublishProductEvent(action, productID, name string) error
}

// publishEvent emits a mutation event after a successful write. Publish
// failures never fail the user-facing operation.
func publishEvent(mq EventPublisher, log *logrus.Logger, action, productID, name string) {
	if mq == nil {
		return
	}
	if err := mq.PublishProductEvent(action, productID, name); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"action":     action,
			"product_id": productID,
		}).Error("failed to publish product event")
	}
}
