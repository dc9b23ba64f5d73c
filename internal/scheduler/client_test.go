package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*Client, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := newClient(asynq.RedisClientOpt{Addr: mr.Addr()}, "alerts")
	t.Cleanup(func() { _ = client.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return client, rdb
}

func TestEnqueueLeadAlertIsUniquePerLead(t *testing.T) {
	client, rdb := newTestClient(t)
	ctx := context.Background()
	payload := LeadAlertPayload{WorkspaceID: "ws-1", SourceID: "src-1", LeadID: "lead-1"}

	if err := client.EnqueueLeadAlert(ctx, payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := client.EnqueueLeadAlert(ctx, payload); err != nil {
		t.Fatalf("duplicate enqueue must be ignored, got %v", err)
	}
	if err := client.EnqueueLeadAlert(ctx, LeadAlertPayload{WorkspaceID: "ws-1", SourceID: "src-1", LeadID: "lead-2"}); err != nil {
		t.Fatalf("enqueue second lead: %v", err)
	}

	pending, err := rdb.LRange(ctx, "asynq:{alerts}:pending", 0, -1).Result()
	if err != nil {
		t.Fatalf("read pending list: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected two pending tasks, got %d", len(pending))
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var client *Client
	if err := client.EnqueueLeadAlert(context.Background(), LeadAlertPayload{LeadID: "x"}); err != nil {
		t.Fatalf("nil client returned %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("nil close returned %v", err)
	}
}

func TestLeadAlertTaskRoundTrip(t *testing.T) {
	task, err := NewLeadAlertTask(LeadAlertPayload{WorkspaceID: "ws", SourceID: "src", LeadID: "lead"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != "intent.lead_alert" {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	var raw map[string]any
	if err := json.Unmarshal(task.Payload(), &raw); err != nil {
		t.Fatalf("payload json: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("payload must carry ids only, got %v", raw)
	}

	parsed, err := ParseLeadAlertPayload(task)
	if err != nil || parsed.LeadID != "lead" {
		t.Fatalf("parse: %+v %v", parsed, err)
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.Password != "secret" || opt.DB != 2 || opt.TLSConfig != nil {
		t.Fatalf("unexpected opts %+v", opt)
	}

	opt, err = redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("parse tls: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure TLS config")
	}

	if _, err := redisClientOpt("://bad", false); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
