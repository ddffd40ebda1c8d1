package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// maxSubjectLen is the SNS limit for email subjects.
const maxSubjectLen = 100

// SNSAPI is the subset of the SNS client used for alerts.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSAlerter publishes defect alerts to a topic.
type SNSAlerter struct {
	client   SNSAPI
	topicARN string
}

func NewSNSAlerter(client SNSAPI, topicARN string) *SNSAlerter {
	return &SNSAlerter{client: client, topicARN: topicARN}
}

func (a *SNSAlerter) PublishDefect(ctx context.Context, alert DefectAlert) (string, error) {
	body, err := json.Marshal(alert)
	if err != nil {
		return "", fmt.Errorf("failed to encode alert: %w", err)
	}

	trailer := alert.TrailerNumber
	if trailer == "" {
		trailer = "unknown trailer"
	}
	subject := fmt.Sprintf("Inspection failed: %s", trailer)
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}

	out, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"trailer_number": {DataType: aws.String("String"), StringValue: aws.String(trailer)},
			"event":          {DataType: aws.String("String"), StringValue: aws.String("inspection.failed")},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish defect alert: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
