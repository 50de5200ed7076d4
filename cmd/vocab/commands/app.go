package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/haivivi/vocab/cmd/vocab/internal/config"
	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/blob"
	"github.com/haivivi/vocab/pkg/classify"
	"github.com/haivivi/vocab/pkg/codebook"
	"github.com/haivivi/vocab/pkg/embed"
	"github.com/haivivi/vocab/pkg/lookup"
	"github.com/haivivi/vocab/pkg/pattern"
	"github.com/haivivi/vocab/pkg/phonetic"
	"github.com/haivivi/vocab/pkg/segment"
	"github.com/haivivi/vocab/pkg/store"
)

// app wires the whole pipeline for one CLI invocation: storage,
// extractor, codebook, classifier, pattern machinery, and resolver,
// restored from persisted state.
type app struct {
	settings *config.Settings
	st       *store.Store
	blobs    blob.Store
	ext      embed.Extractor
	quant    *codebook.Quantizer
	cls      *classify.Classifier
	coll     *pattern.Collection
	resolver *lookup.Resolver
}

func openApp(ctx context.Context) (*app, error) {
	var settings *config.Settings
	var err error
	if configPath != "" {
		settings, err = config.LoadFrom(configPath)
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.Options{Dir: settings.DataDir})
	if err != nil {
		return nil, err
	}

	var blobs blob.Store
	if settings.S3.Bucket != "" {
		client := s3.New(s3.Options{
			Region:      settings.S3.Region,
			Credentials: aws.NewCredentialsCache(envCredentials{}),
		})
		blobs = blob.NewS3(client, settings.S3.Bucket, settings.S3.Prefix)
	} else {
		blobs, err = blob.NewDir(settings.RecordingsDir)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	ext := embed.NewFbank()
	quant := codebook.New(codebook.Config{Dim: ext.Dimension()})
	if snap, err := st.LoadCodebook(ctx); err == nil {
		if err := quant.Restore(snap); err != nil {
			st.Close()
			return nil, fmt.Errorf("restore codebook: %w", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		st.Close()
		return nil, err
	}

	cls := classify.New(classify.Config{})
	if snap, err := st.LoadClassifier(ctx); err == nil {
		cls.Restore(snap)
	} else if !errors.Is(err, store.ErrNotFound) {
		st.Close()
		return nil, err
	}

	coll := pattern.NewCollection()
	if snap, err := st.LoadPatterns(ctx); err == nil {
		if err := coll.Restore(snap); err != nil {
			st.Close()
			return nil, fmt.Errorf("restore patterns: %w", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		st.Close()
		return nil, err
	}

	trans := phonetic.NewTranscriber(ext, quant, phonetic.TranscriberConfig{})
	segx := segment.NewExtractor(ext, segment.Config{})
	miner := pattern.NewMiner(segx, pattern.MinerConfig{})
	matcher := pattern.NewMatcher(segx, ext, pattern.MatcherConfig{})
	resolver := lookup.NewResolver(ext, trans, cls, miner, matcher, coll, lookup.Config{})

	examples, err := st.Examples(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	resolver.RestoreExamples(examples)

	return &app{
		settings: settings,
		st:       st,
		blobs:    blobs,
		ext:      ext,
		quant:    quant,
		cls:      cls,
		coll:     coll,
		resolver: resolver,
	}, nil
}

// save persists every mutable piece of learner state.
func (a *app) save(ctx context.Context) error {
	if err := a.st.SaveCodebook(ctx, a.quant.Snapshot()); err != nil {
		return err
	}
	if err := a.st.SaveClassifier(ctx, a.cls.Snapshot()); err != nil {
		return err
	}
	return a.st.SavePatterns(ctx, a.coll.Snapshot())
}

func (a *app) close() {
	if err := a.st.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close store: %v\n", err)
	}
}

// readAudio loads an audio file: the recording container format, or
// raw little-endian 16-bit PCM at the configured sample rate.
func (a *app) readAudio(path string) (*pcm.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if buf, err := blob.DecodeRecording(data); err == nil {
		return buf, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".vpcm") {
		return nil, fmt.Errorf("%s: corrupt recording container", path)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	return pcm.FromInt16(data, a.settings.SampleRate), nil
}

// envCredentials reads static credentials from the environment, the
// only source this CLI supports.
type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}, nil
}
