package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// fakeSNSClient captures the last Publish input.
type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSPublisherSendsEvent(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "calls-topic",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:eu-central-1:123:calls",
		client:   client,
		log:      ensureLogger(nil),
	}

	evt := Event{Kind: "CALL", Callee: "01701234567"}
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if client.input == nil {
		t.Fatal("Publish was not called on the client")
	}
	if aws.ToString(client.input.TopicArn) != pub.topicARN {
		t.Errorf("topic arn = %q", aws.ToString(client.input.TopicArn))
	}

	var decoded Event
	if err := json.Unmarshal([]byte(aws.ToString(client.input.Message)), &decoded); err != nil {
		t.Fatalf("message is not event JSON: %v", err)
	}
	if decoded.Callee != "01701234567" {
		t.Errorf("unexpected payload: %+v", decoded)
	}

	attr, ok := client.input.MessageAttributes["kind"]
	if !ok {
		t.Fatal("kind message attribute missing")
	}
	if aws.ToString(attr.StringValue) != "CALL" {
		t.Errorf("kind attribute = %q, want CALL", aws.ToString(attr.StringValue))
	}
}

func TestSNSPublisherSendFailure(t *testing.T) {
	pub := &snsPublisher{
		id:       "calls-topic",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:eu-central-1:123:calls",
		client:   &fakeSNSClient{err: errors.New("access denied")},
		log:      ensureLogger(nil),
	}

	if err := pub.Publish(context.Background(), Event{Kind: "CALL"}); err == nil {
		t.Fatal("expected send error")
	}
}

func TestNewSNSPublisherRequiresConfig(t *testing.T) {
	if _, err := newSNSPublisher(context.Background(), PublisherConfig{ID: "x", Type: TypeSNS}, nil); err == nil {
		t.Fatal("expected error without sns configuration")
	}
}
