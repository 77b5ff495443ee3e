// Package mirror copies completed recording folders into an S3 compatible
// bucket as an off-host second copy.
package mirror

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kism/backup-ivs/internal/config"
	"github.com/kism/backup-ivs/internal/cryptoutil"
)

// encSuffix marks objects encrypted before upload.
const encSuffix = ".enc"

// Mirror uploads recording folders to one bucket.
type Mirror struct {
	cfg    config.MirrorConfig
	client *minio.Client
	key    []byte
}

// New dials the object store and makes sure the bucket exists. It returns
// (nil, nil) when the mirror is disabled; callers check for nil.
func New(ctx context.Context, cfg config.MirrorConfig) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var key []byte
	if cfg.EncryptionKey != "" {
		var err error
		key, err = cryptoutil.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("mirror: %w", err)
		}
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("mirror: connect %s: %w", cfg.Endpoint, err)
	}
	m := &Mirror{cfg: cfg, client: client, key: key}
	if err := m.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mirror) ensureBucket(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("mirror: check bucket %s: %w", m.cfg.Bucket, err)
	}
	if ok {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{Region: m.cfg.Region}); err != nil {
		return fmt.Errorf("mirror: create bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

// MirrorFolder uploads every visible file of one recording folder, skipping
// objects already present with the expected size. Uploads run in parallel
// bounded by the configured concurrency.
func (m *Mirror) MirrorFolder(ctx context.Context, site, team, year, folder, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("mirror: read folder %s: %w", dir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := e.Name()
		g.Go(func() error {
			key := objectKey(m.cfg.Prefix, site, team, year, folder, name, m.key != nil)
			return m.uploadOne(ctx, key, filepath.Join(dir, name))
		})
	}
	return g.Wait()
}

func (m *Mirror) uploadOne(ctx context.Context, key, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	size := fi.Size()
	if m.key != nil {
		if size, err = cryptoutil.EncryptedSize(fi.Size()); err != nil {
			return fmt.Errorf("mirror %s: %w", key, err)
		}
	}

	if st, err := m.client.StatObject(ctx, m.cfg.Bucket, key, minio.StatObjectOptions{}); err == nil && st.Size == size {
		log.Debug().Str("object", key).Msg("already mirrored")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if m.key != nil {
		if reader, err = cryptoutil.EncryptReader(f, m.key); err != nil {
			return fmt.Errorf("mirror %s: %w", key, err)
		}
	}

	opts := minio.PutObjectOptions{ContentType: contentType(path)}
	if _, err := m.client.PutObject(ctx, m.cfg.Bucket, key, reader, size, opts); err != nil {
		return fmt.Errorf("mirror %s: %w", key, err)
	}
	log.Debug().Str("object", key).Int64("bytes", size).Msg("mirrored")
	return nil
}

func objectKey(prefix, site, team, year, folder, file string, encrypted bool) string {
	key := path.Join(prefix, site, team, year, folder, file)
	if encrypted {
		key += encSuffix
	}
	return key
}

func contentType(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
