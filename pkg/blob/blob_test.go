package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/haivivi/vocab/pkg/audio/pcm"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var errNoSuchKey = &apiError{code: "NoSuchKey", msg: "no such key"}

// mockS3 is a thread-safe in-memory S3 backend.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, errNoSuchKey
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound", msg: "not found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func testRecording() *pcm.Buffer {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return pcm.New(samples, 16000)
}

func TestRecordingRoundTrip(t *testing.T) {
	buf := testRecording()
	data, err := EncodeRecording(buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRecording(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rate != buf.Rate || got.Len() != buf.Len() {
		t.Fatalf("shape = %d@%d, want %d@%d", got.Len(), got.Rate, buf.Len(), buf.Rate)
	}
	for i := range got.Samples {
		if math.Abs(float64(got.Samples[i]-buf.Samples[i])) > 1.0/32768*2 {
			t.Fatalf("sample %d drifted: %v vs %v", i, got.Samples[i], buf.Samples[i])
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("xy"), []byte("not a recording")} {
		if _, err := DecodeRecording(data); err == nil {
			t.Errorf("decoded garbage %q", data)
		}
	}
	if _, err := EncodeRecording(nil); err == nil {
		t.Error("encoded nil recording")
	}
}

func testStoreLifecycle(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("get missing: %v, want ErrNotExist", err)
	}
	if ok, err := s.Exists(ctx, "missing"); err != nil || ok {
		t.Fatalf("exists missing = %v/%v", ok, err)
	}

	if err := SaveRecording(ctx, s, "rec/e1", testRecording()); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "rec/e1"); !ok {
		t.Fatal("recording not found after save")
	}
	buf, err := LoadRecording(ctx, s, "rec/e1")
	if err != nil {
		t.Fatal(err)
	}
	if buf.Rate != 16000 || buf.Len() != 1600 {
		t.Fatalf("loaded shape = %d@%d", buf.Len(), buf.Rate)
	}

	if err := s.Delete(ctx, "rec/e1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "rec/e1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := s.Get(ctx, "rec/e1"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("get after delete: %v, want ErrNotExist", err)
	}
}

func TestDirStore(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStoreLifecycle(t, d)
}

func TestS3Store(t *testing.T) {
	testStoreLifecycle(t, NewS3(newMockS3(), "bucket", "vocab"))
}

func TestS3KeyPrefix(t *testing.T) {
	m := newMockS3()
	s := NewS3(m, "bucket", "vocab")
	if err := s.Put(context.Background(), "rec/e1", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.objects["vocab/rec/e1"]; !ok {
		t.Errorf("object keys = %v, want vocab/rec/e1", m.objects)
	}
}
