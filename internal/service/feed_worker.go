package service

import (
	"encoding/json"
	"log"

	"reelview/internal/model"
	"reelview/internal/util"
	"reelview/internal/websocket"

	amqp "github.com/rabbitmq/amqp091-go"
)

// FeedWorker consumes comment feed messages from RabbitMQ and pushes them to
// the WebSocket hub for realtime delivery.
type FeedWorker struct {
	rabbitMQ *util.RabbitMQClient
	wsHub    *websocket.Hub
	stopChan chan bool
}

// NewFeedWorker creates a new feed worker
func NewFeedWorker(rabbitMQ *util.RabbitMQClient, wsHub *websocket.Hub) *FeedWorker {
	return &FeedWorker{
		rabbitMQ: rabbitMQ,
		wsHub:    wsHub,
		stopChan: make(chan bool),
	}
}

// Start starts consuming feed messages from RabbitMQ
func (w *FeedWorker) Start() error {
	if w.rabbitMQ == nil {
		return nil // RabbitMQ not available, publisher broadcasts directly
	}

	channel := w.rabbitMQ.GetChannel()
	if channel == nil {
		return nil
	}

	if err := channel.ExchangeDeclare(
		feedExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}

	queue, err := channel.QueueDeclare(
		feedQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	if err := channel.QueueBind(
		feedQueue,
		feedRoutingKey,
		feedExchange,
		false,
		nil,
	); err != nil {
		return err
	}

	msgs, err := channel.Consume(
		queue.Name,
		"feed_worker",
		false, // auto-ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		log.Println("Feed worker started, consuming messages...")
		for {
			select {
			case <-w.stopChan:
				log.Println("Feed worker stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Feed queue closed")
					return
				}
				if err := w.processFeedMessage(msg); err != nil {
					log.Printf("Error processing feed message: %v", err)
					// Don't ack on error, let RabbitMQ requeue
					msg.Nack(false, true)
				} else {
					msg.Ack(false)
				}
			}
		}
	}()

	return nil
}

// processFeedMessage routes one comment change to the watchers of its review.
func (w *FeedWorker) processFeedMessage(msg amqp.Delivery) error {
	var feedMsg FeedMessage
	if err := json.Unmarshal(msg.Body, &feedMsg); err != nil {
		return err
	}

	if w.wsHub != nil && feedMsg.ReviewID != "" {
		w.wsHub.BroadcastEvent(feedMsg.ReviewID, model.FeedEvent{
			Event:   feedMsg.Event,
			Comment: feedMsg.Comment,
		})
	}

	return nil
}

// Stop stops the feed worker
func (w *FeedWorker) Stop() {
	close(w.stopChan)
}
