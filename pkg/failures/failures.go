// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

// Package failures implements the failure service: a set of named failure
// handlers whose configuration can be read and replaced as a JSON object,
// either in process or over HTTP.
//
// A handler owns one top-level key and interprets its value:
//
//		func(value json.RawMessage) error
//
// The value is nil until something is staged under the key, and goes back to
// nil when an update leaves the key out. A GET returns the whole
// configuration; a POST replaces it:
//
//		curl http://<host>:<port>/__failure__ -XPOST -d \
//		'{"mirror_verify_expected_regions": [{"lba": 16, "blocks": 1, "positions": 1, "type": 2}]}'
//
// Posting "{}" resets every handler.
package failures

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	log "github.com/golang/glog"
)

// DefaultFailureServicePath is the path that the failure service handler will
// be mounted on, by default.
const DefaultFailureServicePath = "/__failure__"

// Default is the process-wide registry used by the package-level functions.
var Default = NewRegistry()

// Init mounts the default registry on the default path on the default http
// mux.
func Init() {
	InitWithPathAndMux(http.DefaultServeMux, DefaultFailureServicePath)
}

// InitWithPathAndMux mounts the default registry on the given path and mux.
func InitWithPathAndMux(mux *http.ServeMux, path string) {
	mux.Handle(path, Default)
}

// Register registers a failure handler with the default registry.
func Register(key string, handler func(json.RawMessage) error) error {
	return Default.Register(key, handler)
}

// ServeHTTP implements http.Handler.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r); err != nil {
			log.Errorf("failures: encoding configuration: %s", err)
		}
	case http.MethodPost:
		body, err := ioutil.ReadAll(req.Body)
		if err != nil {
			replyError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := r.Apply(body); err != nil {
			replyError(w, err.Error(), http.StatusBadRequest)
		}
	default:
		replyError(w, fmt.Sprintf("Unsupported method %s", req.Method), http.StatusMethodNotAllowed)
	}
}

func replyError(w http.ResponseWriter, errorStr string, code int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	fmt.Fprintln(w, errorStr)
}
