package crdt

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestLWWRegisterJSONRoundTrip(t *testing.T) {
	r := NewLWWRegister[string]().Set("hello", 42, "replica-a")
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var out LWWRegister[string]
	require.NoError(t, json.Unmarshal(data, &out))
	v, ts, ok := out.Get()
	require.True(t, ok)
	require.Equal(t, "hello", v)
	require.EqualValues(t, 42, ts)
}

func TestGSetJSONRoundTrip(t *testing.T) {
	s := NewGSet[string]().Add("a").Add("b")
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out GSet[string]
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, out.Has("a"))
	require.True(t, out.Has("b"))
	require.Equal(t, 2, out.Size())
}

func TestPNCounterJSONRoundTrip(t *testing.T) {
	c := NewPNCounter().Increment("a", 5).Decrement("a", 2)
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var out PNCounter
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, int64(3), out.Value())
}

func TestRGAJSONRoundTrip(t *testing.T) {
	r := NewRGA[string]("replica-a")
	r, _ = r.Append("x", 1)
	r, _ = r.Append("y", 2)
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var out RGA[string]
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, []string{"x", "y"}, out.ToArray())
}

func TestTombstoneSetJSONRoundTrip(t *testing.T) {
	s := NewTombstoneSet[string]().Add("id1", "v1", 10, "replica-a")
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out TombstoneSet[string]
	require.NoError(t, json.Unmarshal(data, &out))
	v, ok := out.Get("id1")
	require.True(t, ok)
	require.Equal(t, "v1", v)
}
