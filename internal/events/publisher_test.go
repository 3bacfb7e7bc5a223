package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestDisclaimerEvent_Struct(t *testing.T) {
	event := DisclaimerEvent{
		RecordID:       "12",
		UUID:           "a-b-c",
		SessionID:      "sess",
		UserID:         "3",
		Files:          []string{"data.zip", "readme.txt"},
		AcknowledgedAt: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
	}

	s, err := event.Struct()
	require.NoError(t, err)

	// Round trip through the wire format
	data, err := proto.Marshal(s)
	require.NoError(t, err)
	var decoded structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &decoded))

	m := decoded.AsMap()
	assert.Equal(t, "12", m["record_id"])
	assert.Equal(t, "3", m["user_id"])
	assert.Equal(t, []any{"data.zip", "readme.txt"}, m["files"])
	assert.Equal(t, "2024-02-03T04:05:06Z", m["acknowledged_at"])
}

func TestDisclaimerEvent_StructAnonymous(t *testing.T) {
	s, err := DisclaimerEvent{RecordID: "1"}.Struct()
	require.NoError(t, err)

	_, ok := s.AsMap()["user_id"]
	assert.False(t, ok)
	assert.Equal(t, []any{}, s.AsMap()["files"])
}
