package rpc

import (
	"testing"

	"tilesink/pkg/sink"
	"tilesink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

func TestValidationError_RoundTrip(t *testing.T) {
	all := []sink.ValidationError{
		sink.UnsupportedDataType{DType: types.Int16},
		sink.UnsupportedDimensions{Depth: 2},
		sink.UnsupportedChannelCount{Count: 2},
		sink.UnsupportedTileChannelCount{Count: 1},
		sink.UnsupportedArchivePath{Path: "foo.xml"},
		sink.UnsupportedPlainPath{Path: "/"},
	}
	for _, want := range all {
		wire := EncodeValidationError(want)
		assert.Equal(t, want.Error(), wire.Message)

		// 经过 CBOR 编解码
		data, err := Codec{}.Marshal(wire)
		require.NoError(t, err)
		var decoded ValidationError
		require.NoError(t, Codec{}.Unmarshal(data, &decoded))

		got, err := decoded.Decode()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := (&ValidationError{Kind: "bogus"}).Decode()
	assert.Error(t, err)
}

func TestEncodeOutcome(t *testing.T) {
	o := EncodeOutcome(sink.Incomplete{Reason: "overlap is not set"}, nil, "")
	assert.Equal(t, KindIncomplete, o.Kind)
	assert.Equal(t, "overlap is not set", o.Reason)

	o = EncodeOutcome(sink.Failed{Err: sink.UnsupportedChannelCount{Count: 2}}, nil, "")
	assert.Equal(t, KindFailed, o.Kind)
	require.NotNil(t, o.Error)
	assert.Equal(t, 2, o.Error.Count)

	d := &sink.Descriptor{Format: "dzi", XMLPath: "/a.dzi"}
	o = EncodeOutcome(sink.Built{}, d, "abc")
	assert.Equal(t, KindBuilt, o.Kind)
	assert.Same(t, d, o.Descriptor)
	assert.Equal(t, "abc", o.Fingerprint)
}

func TestOutcomeStatus(t *testing.T) {
	err := OutcomeStatus(sink.Incomplete{Reason: "x"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	err = OutcomeStatus(sink.Failed{Err: sink.UnsupportedPlainPath{Path: "a.png"}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "a.png")

	assert.NoError(t, OutcomeStatus(sink.Built{}))
}

func TestCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.Equal(t, CodecName, c.Name())

	assert.Error(t, Codec{}.Unmarshal([]byte{0xff}, &SinkRequest{}))
}
