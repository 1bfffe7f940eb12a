package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/myrjola/velocoach/internal/errors"
)

// S3Config configures an S3 compatible bucket such as MinIO or Cloudflare R2.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// HTTPClient is optional.
	HTTPClient *http.Client
}

// S3Store keeps each plan as a JSON object under plans/{code}.json. Plans of signed-in users get an additional
// index object under users/{id}/{code}.json for listing.
type S3Store struct {
	client *s3.Client
	bucket string
}

type s3Document struct {
	Plan      json.RawMessage `json:"plan"`
	Profile   json.RawMessage `json:"profile"`
	CreatedAt time.Time       `json:"createdAt"`
	UserID    int             `json:"userId,omitempty"`
}

type s3IndexEntry struct {
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Most S3 compatible services only support path style addressing.
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		// Set on the client only. The config loader applies AWS_CA_BUNDLE to its own buildable client and fails
		// for any other kind.
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func planKey(code Code) string { return "plans/" + string(code) + ".json" }

func userPrefix(userID int) string { return "users/" + strconv.Itoa(userID) + "/" }

func (s *S3Store) put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		// Conditional write so that two plans never share a code.
		IfNoneMatch: aws.String("*"),
	})
	return err //nolint:wrapcheck // wrapped by callers.
}

func isPreconditionFailed(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusPreconditionFailed
}

func (s *S3Store) Save(ctx context.Context, saved SavedPlan) error {
	body, err := json.Marshal(s3Document{
		Plan:      saved.PlanJSON,
		Profile:   saved.ProfileJSON,
		CreatedAt: saved.CreatedAt,
		UserID:    saved.UserID,
	})
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	key := planKey(saved.Code())
	if err = s.put(ctx, key, body); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("%w: %s", ErrCodeTaken, saved.Code())
		}
		return errors.Wrap(err, "put plan object", slog.String("key", key))
	}

	if saved.UserID == 0 {
		return nil
	}
	if body, err = json.Marshal(s3IndexEntry{Title: saved.Plan.PlanTitle, CreatedAt: saved.CreatedAt}); err != nil {
		return fmt.Errorf("marshal index entry: %w", err)
	}
	key = userPrefix(saved.UserID) + string(saved.Code()) + ".json"
	if err = s.put(ctx, key, body); err != nil {
		return errors.Wrap(err, "put index object", slog.String("key", key))
	}
	return nil
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by callers.
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return body, nil
}

func (s *S3Store) Get(ctx context.Context, code Code) (SavedPlan, error) {
	key := planKey(code)
	body, err := s.get(ctx, key)
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return SavedPlan{}, fmt.Errorf("%w: %s", ErrNotFound, code)
		}
		return SavedPlan{}, errors.Wrap(err, "get plan object", slog.String("key", key))
	}
	var doc s3Document
	if err = json.Unmarshal(body, &doc); err != nil {
		return SavedPlan{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return decodeSavedPlan(doc.Plan, doc.Profile, doc.CreatedAt, doc.UserID)
}

func (s *S3Store) ListByUser(ctx context.Context, userID int) ([]Summary, error) {
	prefix := userPrefix(userID)
	var summaries []Summary
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list index objects", slog.String("key", prefix))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			body, err := s.get(ctx, key)
			if err != nil {
				return nil, errors.Wrap(err, "get index object", slog.String("key", key))
			}
			var entry s3IndexEntry
			if err = json.Unmarshal(body, &entry); err != nil {
				return nil, fmt.Errorf("unmarshal index entry: %w", err)
			}
			code := strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".json")
			summaries = append(summaries, Summary{Code: Code(code), Title: entry.Title, CreatedAt: entry.CreatedAt})
		}
	}
	slices.SortFunc(summaries, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.Code), string(b.Code))
	})
	return summaries, nil
}
