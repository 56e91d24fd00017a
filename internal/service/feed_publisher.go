package service

import (
	"encoding/json"
	"log"

	"reelview/internal/model"
	"reelview/internal/util"
	"reelview/internal/websocket"
)

const (
	feedExchange   = "comment_feed_exchange"
	feedQueue      = "comment_feed_queue"
	feedRoutingKey = "comment_feed"
)

// FeedMessage is the broker payload for one comment change. The review id
// rides alongside the event so the worker can route it to the right room.
type FeedMessage struct {
	ReviewID string              `json:"review_id"`
	Event    model.FeedEventType `json:"event"`
	Comment  model.Comment       `json:"comment"`
}

// FeedPublisher fans comment changes out to every watcher of a review.
// Changes go through RabbitMQ when it is available so delivery survives a
// busy hub; without a broker they are pushed to the hub directly.
type FeedPublisher interface {
	PublishInsert(comment *model.Comment)
	PublishUpdate(comment *model.Comment)
	PublishDelete(comment *model.Comment)
}

type feedPublisher struct {
	rabbitMQ *util.RabbitMQClient
	wsHub    *websocket.Hub
}

func NewFeedPublisher(rabbitMQ *util.RabbitMQClient, wsHub *websocket.Hub) FeedPublisher {
	return &feedPublisher{
		rabbitMQ: rabbitMQ,
		wsHub:    wsHub,
	}
}

func (p *feedPublisher) PublishInsert(comment *model.Comment) {
	p.publish(model.FeedInsert, comment)
}

func (p *feedPublisher) PublishUpdate(comment *model.Comment) {
	p.publish(model.FeedUpdate, comment)
}

func (p *feedPublisher) PublishDelete(comment *model.Comment) {
	p.publish(model.FeedDelete, comment)
}

func (p *feedPublisher) publish(event model.FeedEventType, comment *model.Comment) {
	if comment == nil || comment.ReviewID == "" {
		return
	}

	msg := FeedMessage{
		ReviewID: comment.ReviewID,
		Event:    event,
		Comment:  *comment,
	}

	if p.rabbitMQ != nil {
		body, err := json.Marshal(msg)
		if err == nil {
			if err := p.rabbitMQ.Publish(feedExchange, feedRoutingKey, body); err == nil {
				return
			}
			log.Printf("Failed to publish feed event to RabbitMQ, falling back to direct broadcast: %v", err)
		}
	}

	// Fallback: direct broadcast to connected clients
	if p.wsHub != nil {
		p.wsHub.BroadcastEvent(msg.ReviewID, model.FeedEvent{Event: msg.Event, Comment: msg.Comment})
	}
}
