package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/notification"
)

type sample struct {
	Name  string   `json:"name" cbor:"name"`
	Count int      `json:"count" cbor:"count"`
	Tags  []string `json:"tags" cbor:"tags"`
}

func TestCodecs_RoundTrip(t *testing.T) {
	sealed, err := Sealed(JSON(), "secret")
	require.NoError(t, err)

	for _, c := range []Codec{JSON(), CBOR(), sealed} {
		t.Run(c.ContentType(), func(t *testing.T) {
			in := sample{Name: "a", Count: 3, Tags: []string{"x", "y"}}
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestCodecs_Envelope(t *testing.T) {
	for _, c := range []Codec{JSON(), CBOR()} {
		t.Run(c.ContentType(), func(t *testing.T) {
			env := notification.Encode(notification.Error[int](errors.DecodeFailure("bad frame")))
			data, err := c.Marshal(env)
			require.NoError(t, err)

			var got notification.Envelope[int]
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, env.ID, got.ID)
			assert.Equal(t, notification.KindError, got.Kind)
			require.NotNil(t, got.Error)
			assert.Equal(t, errors.ErrCodeDecodeFailure, got.Error.Code)
		})
	}
}

func TestCBOR_Deterministic(t *testing.T) {
	a, err := CBOR().Marshal(map[string]int{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)
	b, err := CBOR().Marshal(map[string]int{"c": 3, "a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, IsBinary(CBOR()))
	assert.False(t, IsBinary(JSON()))
}

func TestSealed(t *testing.T) {
	_, err := Sealed(JSON(), "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	c, err := Sealed(JSON(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "application/json+sealed", c.ContentType())

	first, err := c.Marshal("hello")
	require.NoError(t, err)
	second, err := c.Marshal("hello")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "nonce must differ per message")
	assert.NotContains(t, string(first), "hello")

	other, err := Sealed(JSON(), "k2")
	require.NoError(t, err)
	var s string
	err = other.Unmarshal(first, &s)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDecodeFailure))

	err = c.Unmarshal([]byte{1, 2}, &s)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDecodeFailure))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{ContentTypeCBOR, ContentTypeJSON}, r.ContentTypes())

	c, err := r.ByName("json")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, c.ContentType())

	c, err = r.ByName(" CBOR ")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeCBOR, c.ContentType())

	_, err = r.ByName("yaml")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))

	sealed, err := Sealed(CBOR(), "k")
	require.NoError(t, err)
	r.Register(sealed)
	assert.NotNil(t, r.Get("application/cbor+sealed"))
}
