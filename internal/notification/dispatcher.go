package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

const QueueName = "notification_queue"

// AMQPDispatcher 把通知投递到 RabbitMQ，由 notifier worker 消费后发邮件。
// 投递是尽力而为的：任何失败只记日志，绝不向调用方返回错误，
// 保证"通知失败不影响核心状态"是由接口形状保证的，而不是靠调用方自觉。
type AMQPDispatcher struct {
	cfg     *config.Config
	channel *amqp.Channel
}

func NewAMQPDispatcher(cfg *config.Config, channel *amqp.Channel) *AMQPDispatcher {
	return &AMQPDispatcher{
		cfg:     cfg,
		channel: channel,
	}
}

func (d *AMQPDispatcher) Dispatch(msg *domain.NotificationMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("通知消息序列化失败", "type", msg.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(d.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := d.channel.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		slog.Error("通知消息入队失败", "type", msg.Type, "to", msg.To, "error", err)
	}
}
