// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package edge

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/edge-rewriter/rewrite"
	"github.com/hashicorp/edge-rewriter/testutil"
)

func newTestHandler(t *testing.T, cfg rewrite.Config, header CustomHeader) *Handler {
	t.Helper()
	logger := testutil.Logger(t)
	return NewHandler(rewrite.New(cfg, nil, logger), header, logger)
}

func TestHandler_HandleRequest(t *testing.T) {
	header := CustomHeader{Name: DefaultHeaderName, Value: DefaultHeaderValue}

	cases := []struct {
		uri     string
		wantURI string
	}{
		{"/widget/2.0.0/test-sdk.js", "/widget/2.0.0/sdk/test-sdk.js"},
		{"/widget/style.css", "/widget/style.css"},
		{"/widget/1.0.0/home", "/widget/1.0.0/index.html"},
		{"", "/widget/1.0.0/error.html"},
		{"/", "/widget/1.0.0/error.html"},
	}

	for _, tc := range cases {
		t.Run(tc.uri, func(t *testing.T) {
			h := newTestHandler(t, rewrite.DefaultConfig(), header)
			req := &Request{URI: tc.uri, Method: "GET"}

			out := h.HandleRequest(context.Background(), req)
			require.Same(t, req, out)
			require.Equal(t, tc.wantURI, out.URI)
			require.Equal(t, []Header{{Key: "x-custom-header", Value: "ok"}}, out.Headers["x-custom-header"])
		})
	}
}

func TestHandler_HeaderReplacesExisting(t *testing.T) {
	h := newTestHandler(t, rewrite.DefaultConfig(), CustomHeader{Name: "X-Custom-Header", Value: "ok"})
	req := &Request{
		URI: "/widget/1.0.0/home",
		Headers: Headers{
			"x-custom-header": {{Key: "x-custom-header", Value: "stale"}, {Key: "x-custom-header", Value: "older"}},
			"accept":          {{Key: "Accept", Value: "text/html"}},
		},
	}

	h.HandleRequest(context.Background(), req)
	require.Equal(t, []Header{{Key: "X-Custom-Header", Value: "ok"}}, req.Headers["x-custom-header"])
	require.Equal(t, "text/html", req.Headers.Get("Accept"))
}

func TestHandler_Passthrough(t *testing.T) {
	cfg := rewrite.DefaultConfig()
	cfg.Mode = rewrite.ModePassthrough
	h := newTestHandler(t, cfg, CustomHeader{Name: PassthroughHeaderName, Value: "ok"})

	req := h.HandleRequest(context.Background(), &Request{URI: "/widget/1.0.0/home"})
	require.Equal(t, "/widget/1.0.0/home", req.URI)
	require.Equal(t, "ok", req.Headers.Get("x-edge-demo"))
}

func TestHandler_EmptyHeaderUsesDefault(t *testing.T) {
	h := newTestHandler(t, rewrite.DefaultConfig(), CustomHeader{})

	for _, uri := range []string{"/widget/1.0.0/home", "/widget/style.css", ""} {
		req := h.HandleRequest(context.Background(), &Request{URI: uri})
		require.Equal(t, []Header{{Key: "x-custom-header", Value: "ok"}}, req.Headers["x-custom-header"], uri)
	}
}

func TestHandler_HandleEvent(t *testing.T) {
	raw := `{
		"Records": [{
			"cf": {
				"config": {
					"distributionDomainName": "d111111abcdef8.cloudfront.net",
					"distributionId": "EDFDVBD6EXAMPLE",
					"eventType": "viewer-request",
					"requestId": "4TyzHTaYWb1GX1qTfsHhEqV6HUDd_BzoBZnwfnvQc_1oF26ClkoUSEQ=="
				},
				"request": {
					"clientIp": "203.0.113.178",
					"headers": {
						"host": [{"key": "Host", "value": "d111111abcdef8.cloudfront.net"}],
						"user-agent": [{"key": "User-Agent", "value": "curl/7.66.0"}]
					},
					"method": "GET",
					"querystring": "lang=ko",
					"uri": "/widget/test-sdk.js",
					"body": {"inputTruncated": false}
				}
			}
		}]
	}`

	var generic interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &generic))

	ev, err := DecodeEvent(generic)
	require.NoError(t, err)
	require.Equal(t, "EDFDVBD6EXAMPLE", ev.Config().DistributionID)
	require.Equal(t, EventTypeViewerRequest, ev.Config().EventType)

	h := newTestHandler(t, rewrite.DefaultConfig(), CustomHeader{Name: DefaultHeaderName, Value: DefaultHeaderValue})
	req, err := h.HandleEvent(context.Background(), ev)
	require.NoError(t, err)

	want := &Request{
		ClientIP:    "203.0.113.178",
		Method:      "GET",
		QueryString: "lang=ko",
		URI:         "/widget/1.0.0/sdk/test-sdk.js",
		Headers: Headers{
			"host":            {{Key: "Host", Value: "d111111abcdef8.cloudfront.net"}},
			"user-agent":      {{Key: "User-Agent", Value: "curl/7.66.0"}},
			"x-custom-header": {{Key: "x-custom-header", Value: "ok"}},
		},
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_HandleEventWithoutRequest(t *testing.T) {
	h := newTestHandler(t, rewrite.DefaultConfig(), CustomHeader{Name: DefaultHeaderName, Value: DefaultHeaderValue})

	for name, ev := range map[string]*Event{
		"nil":        nil,
		"no records": {},
		"no request": {Records: []Record{{}}},
		"two records": {Records: []Record{
			{CF: CloudFront{Request: &Request{URI: "/a"}}},
			{CF: CloudFront{Request: &Request{URI: "/b"}}},
		}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.HandleEvent(context.Background(), ev)
			require.ErrorIs(t, err, ErrNoRequest)
		})
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := DecodeEvent(map[string]interface{}{"Records": "nope"})
	require.Error(t, err)
}

func TestNewEvent_RoundTrip(t *testing.T) {
	req := &Request{URI: "/widget/1.0.0/home"}
	ev := NewEvent(req, EventConfig{EventType: EventTypeOriginRequest})

	got, err := ev.Request()
	require.NoError(t, err)
	require.Same(t, req, got)
	require.Equal(t, EventTypeOriginRequest, ev.Config().EventType)
}

func TestHeaders_HTTP(t *testing.T) {
	hdr := http.Header{}
	hdr.Add("Accept", "text/html")
	hdr.Add("Accept", "application/json")

	h := HeadersFromHTTP(hdr)
	require.Equal(t, []Header{
		{Key: "Accept", Value: "text/html"},
		{Key: "Accept", Value: "application/json"},
	}, h["accept"])

	h.Set("X-Custom-Header", "ok")
	out := http.Header{}
	out.Set("Accept", "replaced")
	h.ApplyTo(out)
	require.Equal(t, []string{"text/html", "application/json"}, out.Values("Accept"))
	require.Equal(t, "ok", out.Get("X-Custom-Header"))
}

func TestIsReadOnlyHeader(t *testing.T) {
	cases := []struct {
		name      string
		eventType string
		want      bool
	}{
		{"x-custom-header", EventTypeViewerRequest, false},
		{"X-Edge-Demo", EventTypeViewerRequest, true},
		{"x-amz-cf-pop", "", true},
		{"Connection", "", true},
		{"host", EventTypeViewerRequest, true},
		{"host", EventTypeOriginRequest, false},
		{"if-none-match", EventTypeOriginRequest, true},
		{"if-none-match", EventTypeViewerRequest, false},
		{"via", "", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsReadOnlyHeader(tc.name, tc.eventType), "%s during %q", tc.name, tc.eventType)
	}
}
