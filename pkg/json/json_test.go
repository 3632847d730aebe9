package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalToBufferKeepsFormulasUnescaped(t *testing.T) {
	buf, err := MarshalToBuffer(map[string]string{"filterByFormula": "AND({Score} > 3, {Name} != '<none>')"})
	require.NoError(t, err)
	defer PutBuffer(buf)

	assert.Equal(t, `{"filterByFormula":"AND({Score} > 3, {Name} != '<none>')"}`, buf.String())
}

func TestDecoderRoundTrip(t *testing.T) {
	in := map[string]interface{}{"Name": "Ada", "Score": 42.5, "Tags": []interface{}{"a", "b"}}
	data, err := Marshal(in)
	require.NoError(t, err)
	require.True(t, Valid(data))

	var out map[string]interface{}
	require.NoError(t, NewDecoder(bytes.NewReader(data)).Decode(&out))
	assert.Equal(t, in, out)
}

func TestPutBufferDropsOversizedBuffers(t *testing.T) {
	big := bytes.NewBuffer(make([]byte, 0, 2*1024*1024))
	PutBuffer(big)

	buf := GetBuffer()
	assert.Equal(t, 0, buf.Len())
	PutBuffer(buf)
}
