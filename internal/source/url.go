package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"
	"resty.dev/v3"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/lockfile"
)

type urlSource struct {
	name   string
	source config.Source
	client *resty.Client
}

func NewURL(name string, cfg config.Source) Source {
	return &urlSource{
		name:   name,
		source: cfg,
		client: resty.New(),
	}
}

func (s *urlSource) Name() string {
	return s.name
}

func (s *urlSource) Load(ctx context.Context, prevLock *lockfile.LockEntry, opts LoadOptions) (*LoadResult, error) {
	request := s.client.R().SetContext(ctx)
	if opts.ChangedOnly && prevLock != nil {
		if prevLock.ETag != "" {
			request.SetHeader("If-None-Match", prevLock.ETag)
		}
		if prevLock.LastMod != "" {
			request.SetHeader("If-Modified-Since", prevLock.LastMod)
		}
	}

	response, err := request.Get(s.source.URL)
	if err != nil {
		return nil, oops.
			Code("DOWNLOAD_FAILED").
			With("source", s.name).
			With("url", s.source.URL).
			Wrapf(err, "downloading url source")
	}

	if response.StatusCode() == http.StatusNotModified {
		lock := &lockfile.LockEntry{Type: config.SourceURL}
		if prevLock != nil {
			copied := *prevLock
			lock = &copied
		}
		lock.CheckedAt = time.Now().UTC()
		return &LoadResult{Skipped: true, LockEntry: lock}, nil
	}

	if response.StatusCode() < http.StatusOK || response.StatusCode() >= http.StatusMultipleChoices {
		return nil, oops.
			Code("DOWNLOAD_FAILED").
			With("source", s.name).
			With("url", s.source.URL).
			With("status", response.StatusCode()).
			Errorf("url source returned non-success status %d", response.StatusCode())
	}

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, oops.
			Code("DOWNLOAD_FAILED").
			With("source", s.name).
			With("url", s.source.URL).
			Wrapf(err, "reading response body")
	}

	hash := Hash(content)
	lock := &lockfile.LockEntry{
		Type:      config.SourceURL,
		ETag:      response.Header().Get("ETag"),
		LastMod:   response.Header().Get("Last-Modified"),
		CheckedAt: time.Now().UTC(),
		Files:     map[string]string{s.source.URL: hash},
	}

	return &LoadResult{
		Inputs: []Input{{
			Source:    s.name,
			Path:      s.source.URL,
			Content:   content,
			Hash:      hash,
			Unchanged: prevLock.Unchanged(s.source.URL, hash),
		}},
		LockEntry: lock,
	}, nil
}
