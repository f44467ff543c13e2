package actorserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kination/actorflow/pkg/sdk"
)

type fixture struct {
	srv   *httptest.Server
	loads *atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := sdk.NewRegistry()
	env := sdk.MustActorEnvironment(sdk.ActorOptions{Name: "adder", ReplicaCount: 1, TTLSeconds: 60, Requests: sdk.Resources{CPU: "1", Mem: "64Mi"}})
	other := sdk.MustActorEnvironment(sdk.ActorOptions{Name: "other", ReplicaCount: 1, Requests: sdk.Resources{CPU: "1", Mem: "64Mi"}})

	loads := &atomic.Int32{}
	offset := sdk.NewActorCache("offset", func(context.Context, string) (int, error) {
		loads.Add(1)
		return 100, nil
	})
	type in struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	require.NoError(t, reg.RegisterTask(sdk.ActorTask(env, "add", func(ctx context.Context, v in) (int, error) {
		base, err := offset.Get(ctx, "base")
		if err != nil {
			return 0, err
		}
		return base + v.A + v.B, nil
	})))
	require.NoError(t, reg.RegisterTask(sdk.ActorTask(env, "explode", func(context.Context, in) (int, error) {
		panic("kaboom")
	})))
	require.NoError(t, reg.RegisterTask(sdk.ActorTask(other, "elsewhere", func(context.Context, in) (int, error) {
		return 0, nil
	})))

	s, err := New(reg, "adder")
	require.NoError(t, err)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, loads: loads}
}

func (f *fixture) invoke(t *testing.T, task string, body string) (int, InvokeResponse) {
	t.Helper()
	resp, err := http.Post(f.srv.URL+TaskPath(task), "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out InvokeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServer_Invoke(t *testing.T) {
	f := newFixture(t)

	status, resp := f.invoke(t, "add", `{"runId":"r1","nodeId":"n0","input":{"a":1,"b":2}}`)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `103`, string(resp.Output))

	status, resp = f.invoke(t, "add", `{"input":{"a":3,"b":4}}`)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `107`, string(resp.Output))

	require.Equal(t, int32(1), f.loads.Load(), "replica cache should persist across requests")
}

func TestServer_Errors(t *testing.T) {
	f := newFixture(t)

	status, resp := f.invoke(t, "missing", `{"input":{}}`)
	require.Equal(t, http.StatusNotFound, status)
	require.NotEmpty(t, resp.Error)

	status, _ = f.invoke(t, "elsewhere", `{"input":{}}`)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = f.invoke(t, "add", `not json`)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = f.invoke(t, "add", `{"input":"wrong type"}`)
	require.Equal(t, http.StatusBadRequest, status)

	status, resp = f.invoke(t, "explode", `{"input":{"a":1,"b":1}}`)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Contains(t, resp.Error, "kaboom")
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Env   string   `json:"env"`
		Tasks []string `json:"tasks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "adder", body.Env)
	require.Equal(t, []string{"add", "explode"}, body.Tasks)
}

func TestNew_UnknownEnvironment(t *testing.T) {
	_, err := New(sdk.NewRegistry(), "ghost")
	require.ErrorIs(t, err, sdk.ErrNotRegistered)
}
