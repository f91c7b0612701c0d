// Package reliability holds the backup service. Database files are snapshotted
// with VACUUM INTO, bundled into a tar.gz archive and uploaded to S3-compatible
// object storage.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/config"
	"github.com/fatiainvest/screener/internal/database"
)

// BackupService uploads database snapshots to object storage.
type BackupService struct {
	cfg      *config.BackupConfig
	dataDir  string
	dbs      []*database.DB
	uploader *manager.Uploader
	log      zerolog.Logger
}

// NewBackupService creates a backup service for the given databases.
func NewBackupService(ctx context.Context, cfg *config.BackupConfig, dataDir string, dbs []*database.DB, log zerolog.Logger) (*BackupService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &BackupService{
		cfg:      cfg,
		dataDir:  dataDir,
		dbs:      dbs,
		uploader: manager.NewUploader(client),
		log:      log.With().Str("service", "backup").Logger(),
	}, nil
}

// Backup snapshots every database, archives the snapshots and uploads the
// archive. The object key embeds the UTC timestamp so backups never overwrite
// each other.
func (s *BackupService) Backup(ctx context.Context) (string, error) {
	staging, err := os.MkdirTemp("", "screener-backup-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, db := range s.dbs {
		if err := s.snapshotDatabase(db, staging); err != nil {
			return "", err
		}
	}

	archive := filepath.Join(staging, "backup.tar.gz")
	if err := s.buildArchive(staging, archive); err != nil {
		return "", err
	}

	checksum, err := fileChecksum(archive)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("backups/%s.tar.gz", time.Now().UTC().Format("2006-01-02T15-04-05"))
	if err := s.upload(ctx, archive, key, checksum); err != nil {
		return "", err
	}

	s.log.Info().Str("key", key).Str("sha256", checksum).Msg("Backup uploaded")
	return key, nil
}

// snapshotDatabase writes a consistent copy of a live database into dir.
// VACUUM INTO produces a compacted snapshot without blocking readers.
func (s *BackupService) snapshotDatabase(db *database.DB, dir string) error {
	target := filepath.Join(dir, db.Name()+".db")
	if _, err := db.Conn().Exec("VACUUM INTO ?", target); err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", db.Name(), err)
	}
	return nil
}

func (s *BackupService) buildArchive(dir, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read staging dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		if err := addFile(tw, filepath.Join(dir, entry.Name()), entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func addFile(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}

	hdr := &tar.Header{
		Name:    name,
		Mode:    0600,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return nil
}

func (s *BackupService) upload(ctx context.Context, path, key, checksum string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/gzip"),
		Metadata:    map[string]string{"sha256": checksum},
	})
	if err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to checksum archive: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
