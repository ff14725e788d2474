package trigger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "trigsched/pkg/logx"
)

const batch = `{
  "intervalTriggers": [
    {"id": "ack", "interval": 15, "unit": "HOURS", "publishChannel": "/ACK"},
    {"id": "bad-unit", "interval": 15, "unit": "WEEKS", "publishChannel": "/ACK"},
    {"id": "zero", "interval": 0, "unit": "SECONDS", "publishChannel": "/ACK"},
    {"id": "", "interval": 1, "unit": "SECONDS", "publishChannel": "/ACK"}
  ],
  "rangeTriggers": [
    {"id": "r1", "startTime": "11:00 PM", "endTime": "5:00 AM", "publishChannel": "/R", "cmd": "start", "params": {"k": "v"}},
    {"id": "r2", "startTime": "7:00 AM", "publishChannel": "/R"},
    {"id": "no-start", "endTime": "5:00 AM", "publishChannel": "/R"},
    {"id": "garbage", "startTime": "7 o'clock", "publishChannel": "/R"},
    {"id": "no-channel", "startTime": "7:00 AM"}
  ]
}`

func TestDefinitionsBuildKeepsOnlyValid(t *testing.T) {
	t.Parallel()
	var defs Definitions
	require.NoError(t, json.Unmarshal([]byte(batch), &defs))
	assert.Equal(t, 9, defs.Len())

	intervals, ranges := defs.Build(logx.Nop())
	require.Len(t, intervals, 1)
	require.Len(t, ranges, 2)

	assert.Equal(t, "ack", intervals[0].ID)
	assert.Equal(t, KindInterval, intervals[0].Kind)
	assert.Equal(t, "r1", ranges[0].ID)
	assert.Equal(t, "start", ranges[0].Cmd)
	assert.Equal(t, map[string]string{"k": "v"}, ranges[0].Params)
	assert.Equal(t, "r2", ranges[1].ID)
	assert.Nil(t, ranges[1].Params)
}

func TestDefinitionsBuildEmpty(t *testing.T) {
	t.Parallel()
	intervals, ranges := Definitions{}.Build(logx.Logger{})
	assert.Empty(t, intervals)
	assert.Empty(t, ranges)
}

func TestRangeDefinitionRoundTripsTags(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(RangeDefinition{ID: "r", StartTime: strp("1:00 PM"), PublishChannel: "/R"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r","startTime":"1:00 PM","publishChannel":"/R"}`, string(b))
}
