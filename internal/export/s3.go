package export

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"voicecohort/internal/config"
	"voicecohort/internal/curation"
	"voicecohort/internal/logging"
	"voicecohort/internal/services"
)

// ObjectPutter is the subset of the S3 client used for publishing.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads the output folder to <bucket>/<prefix>/<run_id>/.
type S3Publisher struct {
	client    ObjectPutter
	bucket    string
	prefix    string
	outputDir string
	logger    *slog.Logger
}

// NewS3Publisher builds a publisher from the [s3] config section. Credentials
// come from the default AWS chain (environment, shared config, instance role).
func NewS3Publisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*S3Publisher, error) {
	if cfg.S3.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "export", "s3", "s3 bucket required", nil)
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "export", "s3", "load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
	})
	return NewS3PublisherWithClient(client, cfg, logger), nil
}

// NewS3PublisherWithClient builds a publisher around an existing client.
func NewS3PublisherWithClient(client ObjectPutter, cfg *config.Config, logger *slog.Logger) *S3Publisher {
	return &S3Publisher{
		client:    client,
		bucket:    cfg.S3.Bucket,
		prefix:    strings.Trim(cfg.S3.Prefix, "/"),
		outputDir: cfg.Paths.OutputDir,
		logger:    logging.NewComponentLogger(logger, "export"),
	}
}

func (p *S3Publisher) Name() string { return "s3" }

// Export uploads every regular file under the output folder except hidden ones.
func (p *S3Publisher) Export(ctx context.Context, report *curation.Report) error {
	uploaded := 0
	err := filepath.WalkDir(p.outputDir, func(fullPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if strings.HasPrefix(d.Name(), ".") && fullPath != p.outputDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(p.outputDir, fullPath)
		if err != nil {
			return err
		}
		if err := p.upload(ctx, p.Key(report.RunID, rel), fullPath); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrExternal, "export", "s3", "publish output folder", err)
	}
	p.logger.Info("output published",
		logging.String("bucket", p.bucket),
		logging.String("prefix", p.Key(report.RunID, "")),
		logging.Int("objects", uploaded),
	)
	return nil
}

// Key returns the object key for a path relative to the output folder.
func (p *S3Publisher) Key(runID, rel string) string {
	return strings.TrimPrefix(path.Join(p.prefix, runID, filepath.ToSlash(rel)), "/")
}

func (p *S3Publisher) upload(ctx context.Context, key, fullPath string) error {
	f, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}
