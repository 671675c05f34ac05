package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/anchorstore/store"
)

func Test_GobCodec_RoundTrips_Arbitrary_Values(t *testing.T) {
	t.Parallel()

	codec := store.GobCodec[testAnchor]{}
	want := testAnchor{Label: "carol", Devices: []string{"tablet", "phone", "yubikey"}}

	encoded, err := codec.Encode(want)
	require.NoError(t, err)

	got, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func Test_GobCodec_Decode_Returns_Error_On_Garbage_Input(t *testing.T) {
	t.Parallel()

	codec := store.GobCodec[testAnchor]{}

	_, err := codec.Decode([]byte("not a gob stream"))
	require.Error(t, err)
}
