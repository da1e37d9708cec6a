package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testDocument(station string) domain.Document {
	return domain.Document{
		Key:               station,
		MeasuredAt:        "202405141300",
		DistrictCode:      "111123",
		Station:           station,
		COConcentration:   "3.0",
		COGrade:           domain.GradeGood,
		PM10Concentration: "40.0",
		PM10Grade:         domain.GradePoor,
	}
}

func testWriter(fw *fakeWriter) *Writer {
	return &Writer{writer: fw, topic: "air-quality-documents", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testDocument("종로구"))
	require.NoError(t, err)

	assert.Equal(t, []byte("종로구"), msg.Key)
	assert.Contains(t, string(msg.Value), `"station":"종로구"`)
	assert.Contains(t, string(msg.Value), `"co_grade":"good"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "district_code", msg.Headers[0].Key)
	assert.Equal(t, []byte("111123"), msg.Headers[0].Value)
	assert.Equal(t, "co_grade", msg.Headers[1].Key)
	assert.Equal(t, []byte("good"), msg.Headers[1].Value)
	assert.Equal(t, "pm10_grade", msg.Headers[2].Key)
	assert.Equal(t, []byte("poor"), msg.Headers[2].Value)
}

func TestSerializeToMessage_MissingKey(t *testing.T) {
	_, err := serializeToMessage(testDocument(""))
	require.ErrorIs(t, err, domain.ErrMissingStation)
}

func TestWriter_Publish(t *testing.T) {
	fw := &fakeWriter{}
	err := testWriter(fw).Publish(context.Background(), []domain.Document{testDocument("a"), testDocument("b")})
	require.NoError(t, err)

	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("a"), fw.msgs[0].Key)
	assert.Equal(t, []byte("b"), fw.msgs[1].Key)
}

func TestWriter_Publish_Empty(t *testing.T) {
	fw := &fakeWriter{err: errors.New("should not be called")}
	require.NoError(t, testWriter(fw).Publish(context.Background(), nil))
	assert.Empty(t, fw.msgs)
}

func TestWriter_Publish_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	err := testWriter(fw).Publish(context.Background(), []domain.Document{testDocument("a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "air-quality-documents")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestWriter_Close(t *testing.T) {
	fw := &fakeWriter{}
	require.NoError(t, testWriter(fw).Close())
	assert.True(t, fw.closed)
}
