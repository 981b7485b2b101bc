package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
)

type apiCall struct {
	method string
	fields map[string]string
}

const (
	okMessage     = `{"ok":true,"result":{"message_id":321,"chat":{"id":42}}}`
	replyNotFoundBody = `{"ok":false,"error_code":400,"description":"Bad Request: message to be replied not found"}`
)

// newAPIStub runs the client against a local Bot API stub and records every
// call's method name and form fields.
func newAPIStub(t *testing.T, respond func(call apiCall) (int, string)) (*Client, *[]apiCall) {
	t.Helper()
	var calls []apiCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse request form: %v", err)
		}
		fields := make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
		call := apiCall{method: path.Base(r.URL.Path), fields: fields}
		calls = append(calls, call)
		status, body := respond(call)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient("test-token", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return client, &calls
}

func TestSendRetriesOnceWithoutMissingReplyTarget(t *testing.T) {
	client, calls := newAPIStub(t, func(call apiCall) (int, string) {
		if _, withReply := call.fields["reply_parameters"]; withReply {
			return http.StatusBadRequest, replyNotFoundBody
		}
		return http.StatusOK, okMessage
	})

	msg, err := client.Send(context.Background(), Out{ChatID: 42, ReplyTo: 7, Text: "привіт"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != 321 {
		t.Fatalf("expected message id 321, got %d", msg.ID)
	}
	if len(*calls) != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", len(*calls))
	}

	first := (*calls)[0]
	if first.method != "sendMessage" {
		t.Fatalf("unexpected method: %s", first.method)
	}
	if !strings.Contains(first.fields["reply_parameters"], `"message_id":7`) {
		t.Fatalf("first call missing reply target: %v", first.fields)
	}
	second := (*calls)[1]
	if _, ok := second.fields["reply_parameters"]; ok {
		t.Fatalf("resend must drop the reply linkage: %v", second.fields)
	}
	if second.fields["text"] != "привіт" {
		t.Fatalf("resend changed the text: %v", second.fields)
	}
}

func TestSendDoesNotRetryOtherFailures(t *testing.T) {
	client, calls := newAPIStub(t, func(apiCall) (int, string) {
		return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	})

	_, err := client.Send(context.Background(), Out{ChatID: 42, ReplyTo: 7, Text: "привіт"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(*calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(*calls))
	}
}

func TestForwardEncodesSourceChat(t *testing.T) {
	client, calls := newAPIStub(t, func(apiCall) (int, string) {
		return http.StatusOK, okMessage
	})

	msg, err := client.Forward(context.Background(), -1001234567, 11, 42, 7)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if msg.ID != 321 {
		t.Fatalf("expected message id 321, got %d", msg.ID)
	}

	call := (*calls)[0]
	if call.method != "forwardMessage" {
		t.Fatalf("unexpected method: %s", call.method)
	}
	if call.fields["from_chat_id"] != "42" {
		t.Fatalf("from_chat_id: %q", call.fields["from_chat_id"])
	}
	if call.fields["chat_id"] != "-1001234567" {
		t.Fatalf("chat_id: %q", call.fields["chat_id"])
	}
	if call.fields["message_thread_id"] != "11" {
		t.Fatalf("message_thread_id: %q", call.fields["message_thread_id"])
	}
}

func TestCopyEncodesSourceChat(t *testing.T) {
	client, calls := newAPIStub(t, func(apiCall) (int, string) {
		return http.StatusOK, `{"ok":true,"result":{"message_id":99}}`
	})

	id, err := client.Copy(context.Background(), 42, -1001234567, 7)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if id != 99 {
		t.Fatalf("expected copied id 99, got %d", id)
	}

	call := (*calls)[0]
	if call.method != "copyMessage" {
		t.Fatalf("unexpected method: %s", call.method)
	}
	if call.fields["from_chat_id"] != "-1001234567" {
		t.Fatalf("from_chat_id: %q", call.fields["from_chat_id"])
	}
}
