// Package dynamostore implements the identity store on DynamoDB. The
// users table is keyed by email alone.
package dynamostore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goliatone/go-errors"

	session "github.com/DotRed108/go-session"
)

// Options configure the connection for NewFromConfig.
type Options struct {
	Table        string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// Store talks to the DynamoDB users table.
type Store struct {
	client *dynamodb.Client
	table  string
	logger session.Logger
}

var _ session.IdentityStore = (*Store)(nil)

// New wraps an existing DynamoDB client.
func New(client *dynamodb.Client, table string, logger session.Logger) *Store {
	if logger == nil {
		logger = session.DefaultLogger()
	}
	return &Store{client: client, table: table, logger: logger}
}

// NewFromConfig builds a client from the environment plus the given options.
func NewFromConfig(ctx context.Context, opts Options, logger session.Logger) (*Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "failed to load AWS config")
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
	})

	return New(client, opts.Table, logger), nil
}

// GetUser fetches a profile, projecting only the requested fields when
// any are named.
func (s *Store) GetUser(ctx context.Context, email string, fields ...string) (*session.UserProfile, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			session.FieldEmail: &types.AttributeValueMemberS{Value: email},
		},
	}

	if len(fields) > 0 {
		names := map[string]string{}
		projection := ""
		for i, f := range fields {
			alias := fmt.Sprintf("#f%d", i)
			names[alias] = f
			if i > 0 {
				projection += ", "
			}
			projection += alias
		}
		input.ProjectionExpression = aws.String(projection)
		input.ExpressionAttributeNames = names
	}

	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, session.ErrStoreUnavailable.Category, session.ErrStoreUnavailable.Message).
			WithTextCode(session.ErrStoreUnavailable.TextCode)
	}

	if len(out.Item) == 0 {
		return nil, session.ErrUserNotFound
	}

	profile := &session.UserProfile{}
	if err := attributevalue.UnmarshalMap(out.Item, profile); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decode user item")
	}
	if profile.Email == "" {
		profile.Email = email
	}

	return profile, nil
}

// PutUserIfAbsent creates the profile unless the email is registered.
func (s *Store) PutUserIfAbsent(ctx context.Context, profile *session.UserProfile) error {
	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode user item")
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + session.FieldEmail + ")"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return session.ErrEmailTaken
		}
		return errors.Wrap(err, session.ErrStoreUnavailable.Category, session.ErrStoreUnavailable.Message).
			WithTextCode(session.ErrStoreUnavailable.TextCode)
	}

	return nil
}

// TouchLastLogin stamps the last login instant.
func (s *Store) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	return s.updateField(ctx, email, session.FieldLastLoginAt, at.UTC().Format(time.RFC3339))
}

// RecordRefreshFingerprint stores the latest refresh token fingerprint.
func (s *Store) RecordRefreshFingerprint(ctx context.Context, email, fingerprint string) error {
	return s.updateField(ctx, email, session.FieldRefreshFingerprint, fingerprint)
}

func (s *Store) updateField(ctx context.Context, email, field, value string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			session.FieldEmail: &types.AttributeValueMemberS{Value: email},
		},
		UpdateExpression: aws.String("SET #f = :v"),
		ExpressionAttributeNames: map[string]string{
			"#f": field,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		ConditionExpression: aws.String("attribute_exists(" + session.FieldEmail + ")"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return session.ErrUserNotFound
		}
		return errors.Wrap(err, session.ErrStoreUnavailable.Category, session.ErrStoreUnavailable.Message).
			WithTextCode(session.ErrStoreUnavailable.TextCode)
	}

	return nil
}
