package relay

import (
	"context"
	"fmt"

	"pos-relay/models"

	pubnub "github.com/pubnub/go/v7"
)

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
	Channel      string
}

// PubNubPublisher pushes events to a PubNub channel that cashier displays
// can subscribe to directly.
type PubNubPublisher struct {
	channel string
	send    func(ctx context.Context, channel string, message any) error
}

func NewPubNubPublisher(cfg PubNubConfig) *PubNubPublisher {
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pnConfig.SecretKey = cfg.SecretKey

	pn := pubnub.NewPubNub(pnConfig)

	return &PubNubPublisher{
		channel: cfg.Channel,
		send: func(ctx context.Context, channel string, message any) error {
			_, _, err := pn.PublishWithContext(ctx).
				Channel(channel).
				Message(message).
				Execute()
			return err
		},
	}
}

func (p *PubNubPublisher) Name() string {
	return "pubnub"
}

func (p *PubNubPublisher) Publish(ctx context.Context, msg models.Message) error {
	if err := p.send(ctx, p.channel, NewEnvelope(msg)); err != nil {
		return fmt.Errorf("pubnub publish %s: %w", p.channel, err)
	}
	return nil
}
