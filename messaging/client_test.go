// Copyright 2026 The Aadu Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aadu-bot/aadu/lib/ref"
	"github.com/aadu-bot/aadu/lib/secret"
)

// testBuffer creates a secret.Buffer that is closed when the test ends.
func testBuffer(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("creating test buffer: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}

// newTestClient starts handler as a homeserver and returns a Client for it.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(ClientConfig{HomeserverURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func loginHandler(t *testing.T, userID string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		var body LoginRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode login body: %v", err)
		}
		writeJSON(writer, http.StatusOK, map[string]string{
			"user_id":      userID,
			"access_token": "syt_test_token",
			"device_id":    "AADUDEVICE",
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Run("valid URL", func(t *testing.T) {
		client, err := NewClient(ClientConfig{HomeserverURL: "https://matrix.example.org/"})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		if client.baseURL != "https://matrix.example.org" {
			t.Errorf("baseURL = %q, trailing slash should be stripped", client.baseURL)
		}
	})

	t.Run("empty URL", func(t *testing.T) {
		if _, err := NewClient(ClientConfig{}); err == nil {
			t.Fatal("expected error for empty URL")
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		if _, err := NewClient(ClientConfig{HomeserverURL: "://invalid"}); err == nil {
			t.Fatal("expected error for invalid URL")
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.Method != http.MethodPost || request.URL.Path != "/_matrix/client/v3/login" {
				t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
			}
			var body LoginRequest
			if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode request body: %v", err)
			}
			if body.Type != "m.login.password" {
				t.Errorf("login type = %q", body.Type)
			}
			if body.User != "aadu" || body.Password != "hunter2" {
				t.Errorf("credentials = %q/%q", body.User, body.Password)
			}
			if body.InitialDeviceDisplayName != "aadu" {
				t.Errorf("device display name = %q", body.InitialDeviceDisplayName)
			}
			writeJSON(writer, http.StatusOK, map[string]string{
				"user_id":      "@aadu:example.org",
				"access_token": "syt_aadu_token",
				"device_id":    "DEVICE1",
			})
		}))

		session, err := client.Login(context.Background(), "aadu", testBuffer(t, "hunter2"))
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		defer session.Close()

		if session.UserID() != ref.MustParseUserID("@aadu:example.org") {
			t.Errorf("user ID = %s", session.UserID())
		}
		if session.DeviceID() != "DEVICE1" {
			t.Errorf("device ID = %s", session.DeviceID())
		}
		if session.accessToken.String() != "syt_aadu_token" {
			t.Errorf("access token = %s", session.accessToken.String())
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusForbidden, MatrixError{Code: ErrCodeForbidden, Message: "Invalid password"})
		}))

		_, err := client.Login(context.Background(), "aadu", testBuffer(t, "wrong"))
		if !IsMatrixError(err, ErrCodeForbidden) {
			t.Fatalf("expected M_FORBIDDEN error, got: %v", err)
		}
		var matrixErr *MatrixError
		if !errors.As(err, &matrixErr) || matrixErr.StatusCode != http.StatusForbidden {
			t.Errorf("expected status 403 on MatrixError, got %v", err)
		}
	})

	t.Run("response missing token", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, http.StatusOK, map[string]string{"user_id": "@aadu:example.org"})
		}))
		if _, err := client.Login(context.Background(), "aadu", testBuffer(t, "hunter2")); err == nil {
			t.Fatal("expected error for login response without access_token")
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		client, _ := NewClient(ClientConfig{HomeserverURL: "http://localhost:1"})
		if _, err := client.Login(context.Background(), "", testBuffer(t, "password")); err == nil {
			t.Fatal("expected error for empty user")
		}
		if _, err := client.Login(context.Background(), "aadu", nil); err == nil {
			t.Fatal("expected error for nil password")
		}
	})
}

func TestDoRequest_NonMatrixError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		writer.Write([]byte("<html>bad gateway</html>"))
	}))

	_, err := client.doRequest(context.Background(), http.MethodGet, "/_matrix/client/v3/joined_rooms", nil, nil)
	if err == nil {
		t.Fatal("expected error for 502")
	}
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		t.Errorf("non-JSON body should not produce a MatrixError: %v", err)
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "bad gateway") {
		t.Errorf("error should carry status and body: %v", err)
	}
}

func TestMatrixError(t *testing.T) {
	t.Run("error message format", func(t *testing.T) {
		err := &MatrixError{Code: ErrCodeForbidden, Message: "Access denied", StatusCode: 403}
		if got, want := err.Error(), "matrix: M_FORBIDDEN (403): Access denied"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("IsMatrixError", func(t *testing.T) {
		err := error(&MatrixError{Code: ErrCodeNotFound, Message: "not found", StatusCode: 404})
		if !IsMatrixError(err, ErrCodeNotFound) {
			t.Error("IsMatrixError should match M_NOT_FOUND")
		}
		if IsMatrixError(err, ErrCodeForbidden) {
			t.Error("IsMatrixError should not match M_FORBIDDEN")
		}
		if IsMatrixError(context.Canceled, ErrCodeNotFound) {
			t.Error("IsMatrixError should return false for non-matrix errors")
		}
	})

	t.Run("retry after", func(t *testing.T) {
		err := &MatrixError{Code: ErrCodeLimitExceeded, RetryAfterMS: 1500}
		if got := err.RetryAfter().Milliseconds(); got != 1500 {
			t.Errorf("RetryAfter() = %dms, want 1500ms", got)
		}
	})
}
