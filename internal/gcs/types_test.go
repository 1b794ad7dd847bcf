package gcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://exports/plaid/june.json", wantBucket: "exports", wantObject: "plaid/june.json"},
		{uri: "gs://exports/file.json", wantBucket: "exports", wantObject: "file.json"},
		{uri: "gs://exports", wantErr: true},
		{uri: "gs://exports/", wantErr: true},
		{uri: "gs:///object", wantErr: true},
		{uri: "s3://exports/file.json", wantErr: true},
		{uri: "/tmp/file.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidURI))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
			assert.Equal(t, tt.uri, URI(bucket, object))
		})
	}
}

func TestExtractFilename(t *testing.T) {
	assert.Equal(t, "june.json", ExtractFilename("gs://bucket/exports/june.json"))
	assert.Equal(t, "bucket", ExtractFilename("gs://bucket"))
}

func TestReportObject(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "reports/forecast/acc-1/20240305T130709Z.json", ReportObject("forecast", "acc-1", at))
	assert.Equal(t, "reports/recurring/all/20240305T130709Z.json", ReportObject("recurring", "", at))
}

type stubStorage struct {
	data []byte
	uris []string
}

func (s *stubStorage) Fetch(ctx context.Context, uri string) ([]byte, error) {
	s.uris = append(s.uris, uri)
	return s.data, nil
}

func (s *stubStorage) UploadJSON(ctx context.Context, bucket, object string, v any) (string, error) {
	return URI(bucket, object), nil
}

func TestReadInput(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	data, err := ReadInput(ctx, nil, path)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	stub := &stubStorage{data: []byte(`{"transactions":[]}`)}
	data, err = ReadInput(ctx, stub, "gs://bucket/export.json")
	require.NoError(t, err)
	assert.Equal(t, `{"transactions":[]}`, string(data))
	assert.Equal(t, []string{"gs://bucket/export.json"}, stub.uris)

	_, err = ReadInput(ctx, nil, "gs://bucket/export.json")
	assert.Error(t, err)

	_, err = ReadInput(ctx, nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
