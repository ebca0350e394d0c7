package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/services"
)

func TestPubSubOrderEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubOrderEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderEventPublisher: %v", err)
	}
	defer publisher.Stop()

	event := services.OrderEvent{
		EventID:     "6f1c2f7e-2a43-4a0e-9a3b-1d1f0a1b2c3d",
		Type:        services.OrderEventStatusChanged,
		OrderID:     "ord_01",
		OrderNumber: "CBW-2025-000001",
		CustomerID:  "cust_1",
		FromStatus:  domain.OrderStatusPendingConfirmation,
		ToStatus:    domain.OrderStatusConfirmed,
		GrandTotal:  11025,
		Currency:    "AED",
		ActorRole:   domain.ActorRoleStaff,
		OccurredAt:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	if err := publisher.PublishOrderEvent(ctx, event); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.OrderEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderNumber != event.OrderNumber || payload.ToStatus != event.ToStatus || payload.GrandTotal != 11025 {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if got := messages[0].Attributes["type"]; got != "order.status_changed" {
		t.Fatalf("expected type attribute, got %q", got)
	}
	if got := messages[0].OrderingKey; got != "ord_01" {
		t.Fatalf("expected ordering key ord_01, got %q", got)
	}
	if _, ok := messages[0].Attributes["customerId"]; ok {
		t.Fatalf("customer id should not be exposed as an attribute")
	}
}

func TestNewPubSubOrderEventPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubOrderEventPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
