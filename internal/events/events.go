// Package events fans out generation and photo notifications over an
// in-process message bus.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	messagebus "github.com/vardius/message-bus"
	"photo-studio-backend/internal/models"
)

type Topic string

const (
	TopicGeneration Topic = "generation"
	TopicPhotos     Topic = "photos"
)

// Publisher is what services depend on.
type Publisher interface {
	PublishGeneration(ev models.GenerationEvent)
	PublishPhotos(ev models.PhotoEvent)
}

type Broker struct {
	bus messagebus.MessageBus
}

// NewBroker creates a broker whose subscribers each buffer up to queueSize
// pending events.
func NewBroker(queueSize int) *Broker {
	return &Broker{
		bus: messagebus.New(queueSize),
	}
}

func (b *Broker) SubscribeGeneration(fn func(models.GenerationEvent)) error {
	return b.subscribe(TopicGeneration, fn)
}

func (b *Broker) SubscribePhotos(fn func(models.PhotoEvent)) error {
	return b.subscribe(TopicPhotos, fn)
}

func (b *Broker) subscribe(topic Topic, fn any) error {
	if err := b.bus.Subscribe(string(topic), fn); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return nil
}

func (b *Broker) PublishGeneration(ev models.GenerationEvent) {
	log.WithFields(log.Fields{"topic": TopicGeneration, "job_id": ev.JobID, "status": ev.Status}).Debug("publishing event")
	b.bus.Publish(string(TopicGeneration), ev)
}

func (b *Broker) PublishPhotos(ev models.PhotoEvent) {
	log.WithFields(log.Fields{"topic": TopicPhotos, "action": ev.Action, "count": len(ev.PhotoIDs)}).Debug("publishing event")
	b.bus.Publish(string(TopicPhotos), ev)
}

func (b *Broker) Close() {
	b.bus.Close(string(TopicGeneration))
	b.bus.Close(string(TopicPhotos))
}

// Sink receives events for delivery outside the process.
type Sink interface {
	Broadcast(ctx context.Context, channel, event string, payload any) error
}

// Forward relays every event on both topics to sink. Delivery failures are
// logged and dropped; the bus has no redelivery.
func Forward(b *Broker, sink Sink, timeout time.Duration) error {
	send := func(channel, event string, payload any) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := sink.Broadcast(ctx, channel, event, payload); err != nil {
			log.WithError(err).WithFields(log.Fields{"channel": channel, "event": event}).Warn("failed to forward event")
		}
	}

	if err := b.SubscribeGeneration(func(ev models.GenerationEvent) {
		send("generation:"+ev.JobID, string(ev.Status), ev)
	}); err != nil {
		return err
	}
	return b.SubscribePhotos(func(ev models.PhotoEvent) {
		send("album:"+ev.AlbumID, ev.Action, ev)
	})
}

// LogEvents writes every event to the process log at info level.
func LogEvents(b *Broker) error {
	if err := b.SubscribeGeneration(func(ev models.GenerationEvent) {
		ctx := log.WithFields(log.Fields{"job_id": ev.JobID, "model": ev.Model, "status": ev.Status})
		if ev.Error != nil {
			ctx = ctx.WithField("error", ev.Error.Message)
		}
		ctx.Info("generation transition")
	}); err != nil {
		return err
	}
	return b.SubscribePhotos(func(ev models.PhotoEvent) {
		log.WithFields(log.Fields{"album_id": ev.AlbumID, "action": ev.Action, "photos": len(ev.PhotoIDs)}).Info("photos changed")
	})
}
