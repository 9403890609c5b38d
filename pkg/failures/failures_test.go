// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package failures

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder keeps the values a handler was called with.
type recorder struct {
	calls []json.RawMessage
	err   error
}

func (r *recorder) handle(v json.RawMessage) error {
	r.calls = append(r.calls, v)
	return r.err
}

func newTestRegistry(t *testing.T) (*Registry, map[string]*recorder) {
	reg := NewRegistry()
	recs := map[string]*recorder{"drop_prob": {}, "delay_prob": {}, "hdd_limit": {}}
	for k, r := range recs {
		require.NoError(t, reg.Register(k, r.handle))
	}
	return reg, recs
}

func post(t *testing.T, url, body string) int {
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func get(t *testing.T, url string) string {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestInitialConfig(t *testing.T) {
	reg, recs := newTestRegistry(t)
	srv := httptest.NewServer(reg)
	defer srv.Close()

	require.JSONEq(t, `{"drop_prob":null, "delay_prob":null, "hdd_limit":null}`, get(t, srv.URL))
	for _, r := range recs {
		require.Empty(t, r.calls)
	}
	require.Equal(t, []string{"delay_prob", "drop_prob", "hdd_limit"}, reg.Keys())
}

func TestRegisterDuplicate(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.Error(t, reg.Register("drop_prob", func(json.RawMessage) error { return nil }))
}

func TestPostAndReset(t *testing.T) {
	reg, recs := newTestRegistry(t)
	srv := httptest.NewServer(reg)
	defer srv.Close()

	require.Equal(t, http.StatusOK, post(t, srv.URL, `{"drop_prob": {"1": 0.3}, "hdd_limit": 10}`))
	require.JSONEq(t, `{"drop_prob": {"1": 0.3}, "delay_prob":null, "hdd_limit":10}`, get(t, srv.URL))
	require.Len(t, recs["drop_prob"].calls, 1)
	require.JSONEq(t, `{"1": 0.3}`, string(recs["drop_prob"].calls[0]))
	require.Empty(t, recs["delay_prob"].calls)
	require.JSONEq(t, `10`, string(recs["hdd_limit"].calls[0]))

	// Keys left out are reset, and their handlers see nil.
	require.Equal(t, http.StatusOK, post(t, srv.URL, `{"hdd_limit": 20}`))
	require.Len(t, recs["drop_prob"].calls, 2)
	require.Nil(t, recs["drop_prob"].calls[1])
	require.Empty(t, recs["delay_prob"].calls)
	require.JSONEq(t, `20`, string(reg.Get("hdd_limit")))

	require.Equal(t, http.StatusOK, post(t, srv.URL, `{}`))
	require.Nil(t, reg.Get("hdd_limit"))
}

func TestPostInvalid(t *testing.T) {
	reg, recs := newTestRegistry(t)
	srv := httptest.NewServer(reg)
	defer srv.Close()

	require.Equal(t, http.StatusBadRequest, post(t, srv.URL, `{"no_such_key": 1}`))
	require.Equal(t, http.StatusBadRequest, post(t, srv.URL, `not json`))

	recs["delay_prob"].err = errors.New("bad value")
	require.Equal(t, http.StatusBadRequest, post(t, srv.URL, `{"delay_prob": "x"}`))

	req, err := http.NewRequest(http.MethodDelete, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStage(t *testing.T) {
	reg, recs := newTestRegistry(t)
	require.NoError(t, reg.Stage("hdd_limit", json.RawMessage(`5`)))
	require.NoError(t, reg.Stage("drop_prob", json.RawMessage(`0.5`)))
	require.JSONEq(t, `5`, string(reg.Get("hdd_limit")))
	require.Len(t, recs["hdd_limit"].calls, 1)

	require.NoError(t, reg.Stage("hdd_limit", json.RawMessage(`null`)))
	require.Nil(t, reg.Get("hdd_limit"))
	require.JSONEq(t, `0.5`, string(reg.Get("drop_prob")))
	require.Error(t, reg.Stage("nope", nil))
}
