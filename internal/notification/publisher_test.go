package notification

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleNotification() Notification {
	return Notification{
		ID:                "n-1",
		Type:              NotificationTypeMemberLeft,
		RecipientID:       7,
		ActorID:           8,
		Message:           "A member left your group",
		RelatedEntityType: "GROUP",
		RelatedEntityID:   3,
		CreatedAt:         time.Now().UTC(),
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	pub := NewLogPublisher(zap.New(core))

	if err := pub.Publish(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != "MEMBER_LEFT" || fields["recipient_id"] != int64(7) {
		t.Errorf("fields = %v", fields)
	}
}

func TestRoutingKeys(t *testing.T) {
	for typ := range routingKeys {
		key := Notification{Type: typ}.RoutingKey()
		if !strings.HasPrefix(key, "group.") && !strings.HasPrefix(key, "rating.") {
			t.Errorf("%s: unexpected routing key %q", typ, key)
		}
	}
	if key := (Notification{Type: "UNKNOWN"}).RoutingKey(); key != "" {
		t.Errorf("unknown type routed to %q", key)
	}
}

func TestKafkaPublisher(t *testing.T) {
	brokers := os.Getenv("KAFKA_TEST_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_TEST_BROKERS not set")
	}
	pub := NewKafkaPublisher(strings.Split(brokers, ","), "grouprides-test")
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, sampleNotification()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("AMQP_TEST_URL")
	if url == "" {
		t.Skip("AMQP_TEST_URL not set")
	}
	pub, err := NewAMQPPublisher(url, "grouprides.test")
	if err != nil {
		t.Fatalf("NewAMQPPublisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, sampleNotification()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
