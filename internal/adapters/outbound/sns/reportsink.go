// Package sns publishes run reports to an AWS SNS topic.
//
// Each report is serialized as entity.ReportSummary JSON. Message attributes
// allow subscribers to filter without decoding the body:
//   - runId: the run's UUID
//   - direction: "buy" or "sell"
//   - mode: "atomic" or "sequential"
//   - result: "ok" or "aborted"
//   - succeeded / failed: outcome counts
//
// For testing, use the memory.ReportSink adapter instead.
package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/retry"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time check that ReportSink implements outbound.ReportSink.
var _ outbound.ReportSink = (*ReportSink)(nil)

// SNSPublisher defines the subset of SNS client methods used by ReportSink.
// This interface allows for easy mocking in tests.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Config holds configuration for the SNS report sink.
type Config struct {
	// TopicARN is the topic reports are published to.
	TopicARN string

	// MaxRetries is the maximum number of retry attempts for transient failures.
	MaxRetries int

	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each retry.
	BackoffFactor float64

	// Logger is the structured logger for the sink.
	Logger *slog.Logger
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Logger:         slog.Default(),
	}
}

// ReportSink publishes run reports to AWS SNS.
type ReportSink struct {
	client SNSPublisher
	config Config
	logger *slog.Logger
}

// NewReportSink creates a new SNS report sink.
func NewReportSink(client SNSPublisher, config Config) (*ReportSink, error) {
	if client == nil {
		return nil, errors.New("sns client is required")
	}
	if config.TopicARN == "" {
		return nil, errors.New("topic ARN is required")
	}

	defaults := ConfigDefaults()
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = defaults.BackoffFactor
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &ReportSink{
		client: client,
		config: config,
		logger: config.Logger.With("component", "sns-reportsink"),
	}, nil
}

// Publish sends the report summary to the topic.
func (s *ReportSink) Publish(ctx context.Context, report *entity.RunReport) error {
	if report == nil {
		return errors.New("report is nil")
	}

	summary := report.Summary()
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	result := "ok"
	if report.Err != nil {
		result = "aborted"
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.config.TopicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"runId":     stringAttribute(summary.RunID),
			"direction": stringAttribute(string(summary.Direction)),
			"mode":      stringAttribute(string(summary.Mode)),
			"result":    stringAttribute(result),
			"succeeded": numberAttribute(summary.Succeeded),
			"failed":    numberAttribute(summary.Failed),
		},
	}

	retryConfig := retry.Config{
		MaxRetries:     s.config.MaxRetries,
		InitialBackoff: s.config.InitialBackoff,
		MaxBackoff:     s.config.MaxBackoff,
		BackoffFactor:  s.config.BackoffFactor,
	}
	onRetry := func(attempt int, err error, backoff time.Duration) {
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"maxRetries", s.config.MaxRetries,
			"backoff", backoff,
			"error", err,
			"runID", summary.RunID,
		)
	}

	out, err := retry.Do(ctx, retryConfig, isRetryableError, onRetry, func(ctx context.Context) (*sns.PublishOutput, error) {
		return s.client.Publish(ctx, input)
	})
	if err != nil {
		s.logger.Error("failed to publish report", "runID", summary.RunID, "error", err)
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	s.logger.Info("report published", "runID", summary.RunID, "messageID", aws.ToString(out.MessageId))
	return nil
}

func stringAttribute(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}

func numberAttribute(v int) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("Number"),
		StringValue: aws.String(strconv.Itoa(v)),
	}
}

// isRetryableError determines if an error should trigger a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Bad topics and oversized messages will not succeed on retry.
	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return false
	}
	var invalidParam *types.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return false
	}
	var authErr *types.AuthorizationErrorException
	if errors.As(err, &authErr) {
		return false
	}

	// Credential and request validation failures surface as generic API errors.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException", "InvalidClientTokenId",
			"UnrecognizedClientException", "SignatureDoesNotMatch", "ValidationError":
			return false
		}
	}

	// Throttling, internal errors and network issues.
	return true
}
